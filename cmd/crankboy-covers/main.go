package main

import (
	"fmt"
	"io"
	"log"
	"os"

	covers "github.com/CrankBoyHQ/crankboy-covers"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newConverter(c *cli.Context) (*covers.Converter, func(), error) {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	cfg := covers.DefaultConfig()
	cfg.Workers = c.Int("workers")
	cfg.MaxSize = c.Int("size")
	cfg.MaskPercent = c.Float64("mask-left")
	cfg.Enhance.DarkMean = c.Float64("dark-mean")
	cfg.Enhance.LowContrastStdDev = c.Float64("low-stddev")
	cfg.Enhance.Gamma = c.Float64("gamma")
	cfg.Enhance.LocalRadius = c.Float64("local-radius")
	cfg.Enhance.LocalStrength = c.Float64("local-strength")

	cleanup := func() {}

	var db *covers.CoverDB
	if file := c.String("cache"); file != "" {
		var err error
		if db, err = covers.OpenCoverDB(file); err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
	}

	return covers.New(cfg, db, logger), cleanup, nil
}

func main() {
	app := cli.NewApp()

	app.Name = "crankboy-covers"
	app.Usage = "Convert artwork into 1-bit Playdate cover assets"
	app.Version = "1.0.0"

	defaults := covers.DefaultConfig()

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
		&cli.StringFlag{
			Name:    "cache",
			EnvVars: []string{"CRANKBOY_COVERS_CACHE"},
			Usage:   "path to conversion cache database",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "maximum parallel conversions (0 = one per CPU)",
		},
		&cli.IntFlag{
			Name:  "size",
			Value: defaults.MaxSize,
			Usage: "bounding box for covers in pixels",
		},
		&cli.Float64Flag{
			Name:  "mask-left",
			Usage: "percentage of image width to mask from brightness statistics",
		},
		&cli.Float64Flag{
			Name:  "dark-mean",
			Value: defaults.Enhance.DarkMean,
			Usage: "mean luminance at or below which a cover counts as dark",
		},
		&cli.Float64Flag{
			Name:  "low-stddev",
			Value: defaults.Enhance.LowContrastStdDev,
			Usage: "luminance deviation at or below which a cover counts as flat",
		},
		&cli.Float64Flag{
			Name:  "gamma",
			Value: defaults.Enhance.Gamma,
			Usage: "gamma lift applied to dark covers",
		},
		&cli.Float64Flag{
			Name:  "local-radius",
			Value: defaults.Enhance.LocalRadius,
			Usage: "local contrast radius in pixels",
		},
		&cli.Float64Flag{
			Name:  "local-strength",
			Value: defaults.Enhance.LocalStrength,
			Usage: "local contrast strength in percent",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert a directory of artwork into compiled cover assets",
			Description: "Runs the full pipeline: dither every PNG in SOURCE, compile the results with pdc, and extract the .pdi assets into OUTPUT.",
			ArgsUsage:   "SOURCE OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				// Fail fast before any image work if pdc is missing.
				if _, err := covers.LookupCompiler(); err != nil {
					return cli.Exit(err, 1)
				}

				conv, cleanup, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer cleanup()

				staging, err := os.MkdirTemp("", "crankboy-covers-")
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer os.RemoveAll(staging)

				summary, err := conv.Convert(c.Context, c.Args().Get(0), staging)
				if err != nil {
					return cli.Exit(err, 1)
				}

				pdx, err := conv.Compile(staging)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer os.RemoveAll(pdx)

				if _, err := conv.ExtractAssets(pdx, c.Args().Get(1)); err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%d converted, %d failed\n", summary.Succeeded, summary.Failed)

				return nil
			},
		},
		{
			Name:        "prepare",
			Usage:       "Dither artwork into a staging directory without compiling",
			Description: "Useful for inspecting the 1-bit covers before handing them to pdc.",
			ArgsUsage:   "SOURCE STAGING",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, cleanup, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer cleanup()

				summary, err := conv.Convert(c.Context, c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%d converted, %d failed\n", summary.Succeeded, summary.Failed)

				return nil
			},
		},
		{
			Name:        "extract",
			Usage:       "Extract compiled cover assets from an existing package",
			Description: "Recursively collects the .pdi files from PACKAGE into a flat OUTPUT directory, leaving everything else behind.",
			ArgsUsage:   "PACKAGE OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, cleanup, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer cleanup()

				n, err := conv.ExtractAssets(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("%d assets extracted\n", n)

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
