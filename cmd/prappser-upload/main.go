package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "prappser-upload",
		Usage: "Resumable, deduplicated file uploads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "Base URL of the upload server",
				EnvVars: []string{"PRAPPSER_UPLOAD_SERVER"},
			},
			&cli.Int64Flag{
				Name:    "chunk-size",
				Value:   1 << 20,
				Usage:   "Chunk size in bytes",
				EnvVars: []string{"PRAPPSER_UPLOAD_CHUNK_SIZE"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   5 * time.Minute,
				Usage:   "Per-request timeout",
				EnvVars: []string{"PRAPPSER_UPLOAD_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			uploadCmd,
			verifyCmd,
			hashCmd,
		},
	}
}
