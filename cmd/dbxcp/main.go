// Command dbxcp copies a file between Dropbox and any location vfs supports, or between two Dropbox paths.
//
//	dbxcp ./report.csv dbx:///Reports/2026/report.csv
//	dbxcp dbx:///Reports/2026/report.csv s3://bucket/reports/report.csv
//	dbxcp dbx:///Reports/draft.csv dbx:///Reports/final.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/c2fo/dbxfiles"
	"github.com/c2fo/dbxfiles/transport"
)

func main() {
	app := cli.NewApp()
	app.Name = "dbxcp"
	app.Usage = "Copies a file to, from or within Dropbox"
	app.ArgsUsage = "SOURCE TARGET"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "token",
			Usage:  "dropbox access token",
			EnvVar: transport.EnvAccessToken,
		},
		cli.IntFlag{
			Name:  "chunkSize",
			Usage: "upload session chunk size in bytes",
			Value: dbxfiles.DefaultChunkSize,
		},
		cli.BoolFlag{
			Name:  "overwrite",
			Usage: "replace the target when it exists in Dropbox",
		},
		cli.BoolFlag{
			Name:  "autorename",
			Usage: "let Dropbox rename the target when it conflicts",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log every request",
		},
		cli.BoolFlag{
			Name:  "noColor",
			Usage: "disable colored output",
		},
	}
	app.Action = action

	if err := app.Run(os.Args); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func action(c *cli.Context) error {
	if err := checkArgs(c.Args().Get(0), c.Args().Get(1)); err != nil {
		return err
	}
	src, err := parseEndpoint(c.Args().Get(0))
	if err != nil {
		return err
	}
	dst, err := parseEndpoint(c.Args().Get(1))
	if err != nil {
		return err
	}

	if c.Bool("noColor") {
		color.NoColor = true
	}

	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}).
		Level(level).With().Timestamp().Logger()

	client, err := transport.NewClient(c.String("token"),
		dbxfiles.WithLogger(logger),
		dbxfiles.WithChunkSize(c.Int("chunkSize")),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := &transfer{
		client:     client,
		out:        color.Output,
		overwrite:  c.Bool("overwrite"),
		autorename: c.Bool("autorename"),
	}
	if err := t.run(ctx, src, dst); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}
