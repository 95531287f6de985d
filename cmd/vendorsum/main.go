package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/vendorsum/vendorsum/pkg/syncer"
)

const (
	appName    = "vendorsum"
	appVersion = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:  appName,
		Usage: "update checksums in cargo vendor manifests",
		Before: func(c *cli.Context) error {
			configureLogging(c.Bool("verbose"))
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "files",
				Aliases: []string{"f"},
				Usage:   "update checksums for vendor-relative `FILES` (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "packages",
				Aliases: []string{"p"},
				Usage:   "re-hash every file listed in these packages' manifests (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "re-hash every package under the vendor root",
			},
			&cli.StringFlag{
				Name:  "vendor",
				Value: "vendor",
				Usage: "path of the vendor `DIR`",
			},
			&cli.BoolFlag{
				Name:  "ignore-missing",
				Usage: "remove checksum entries for missing files instead of failing",
			},
			&cli.IntFlag{
				Name:  "num-threads",
				Usage: "limit the hashing worker pool to `NUM` threads",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		},
		Action: updateAction,
		Commands: []*cli.Command{
			completionCmd(),
			{
				Name:  "version",
				Usage: "print version",
				Action: func(c *cli.Context) error {
					fmt.Println(appVersion)
					return nil
				},
			},
		},
		EnableBashCompletion: true,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func updateAction(c *cli.Context) error {
	var (
		files = c.StringSlice("files")
		pkgs  = c.StringSlice("packages")
		all   = c.Bool("all")
	)
	if err := validateSelection(files, pkgs, all); err != nil {
		return err
	}

	s := syncer.New(c.String("vendor"))
	s.IgnoreMissing = c.Bool("ignore-missing")
	s.Workers = c.Int("num-threads")

	slog.Debug("starting update",
		"vendor", s.VendorRoot,
		"files", len(files),
		"packages", len(pkgs),
		"all", all,
		"workers", s.Workers,
	)

	switch {
	case len(files) > 0:
		return s.UpdateFiles(files)
	case all:
		return s.UpdateAll()
	default:
		return s.UpdatePackages(pkgs)
	}
}

func validateSelection(files, pkgs []string, all bool) error {
	selected := 0
	if len(files) > 0 {
		selected++
	}
	if len(pkgs) > 0 {
		selected++
	}
	if all {
		selected++
	}
	if selected != 1 {
		return fmt.Errorf(
			"select exactly one of --files, --packages, or --all",
		)
	}
	return nil
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	))
}
