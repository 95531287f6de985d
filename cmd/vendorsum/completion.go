package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/valyala/fasttemplate"
)

// Stock urfave/cli autocomplete scripts with the program name
// templated in. They call back into the binary with
// --generate-bash-completion to enumerate flags and commands.
const bashScript = `#!/bin/bash

_{{prog}}_autocomplete() {
  local cur opts
  COMPREPLY=()
  cur="${COMP_WORDS[COMP_CWORD]}"
  opts=$( ${COMP_WORDS[@]:0:$COMP_CWORD} ${cur} --generate-bash-completion )
  COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
  return 0
}

complete -o bashdefault -o default -o nospace -F _{{prog}}_autocomplete {{prog}}
`

const zshScript = `#compdef {{prog}}

_{{prog}}() {
  local -a opts
  local cur
  cur=${words[-1]}
  opts=("${(@f)$(${words[@]:0:#words[@]-1} ${cur} --generate-bash-completion)}")
  _describe 'values' opts
}

compdef _{{prog}} {{prog}}
`

func completionCmd() *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "print a shell completion script",
		ArgsUsage: "<bash|zsh>",
		Action:    completionAction,
	}
}

func completionAction(c *cli.Context) error {
	var script string
	switch c.Args().First() {
	case "bash":
		script = bashScript
	case "zsh":
		script = zshScript
	default:
		return fmt.Errorf(
			"usage: %s completion <bash|zsh>", appName,
		)
	}

	tpl := fasttemplate.New(script, "{{", "}}")
	_, err := tpl.Execute(os.Stdout, map[string]interface{}{
		"prog": appName,
	})
	return err
}
