package main

import (
	"fmt"
	"math"

	"github.com/prappser/prappser_upload/internal/client"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var cacheFlag = &cli.StringFlag{
	Name:    "cache-dir",
	Usage:   "Directory of the local fingerprint cache (disabled when empty)",
	EnvVars: []string{"PRAPPSER_UPLOAD_CACHE_DIR"},
}

var uploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "Upload a file, sending only the chunks the server is missing",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "concurrency",
			Value:   client.DefaultConcurrency,
			Usage:   "Maximum chunks in flight",
			EnvVars: []string{"PRAPPSER_UPLOAD_CONCURRENCY"},
		},
		cacheFlag,
	},
	Action: func(ctx *cli.Context) error {
		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close()
		}

		uploading := stepLogger("Uploading")
		uploader := client.NewUploader(newTransport(ctx), client.Options{
			ChunkSize:             ctx.Int64("chunk-size"),
			Concurrency:           ctx.Int("concurrency"),
			Cache:                 cache,
			OnFingerprintProgress: stepLogger("Fingerprinting"),
			OnProgress:            func(p client.Progress) { uploading(p.Percent) },
		})

		result, err := uploader.Upload(ctx.Context, ctx.Args().First())
		if err != nil {
			return err
		}

		if result.Instant {
			fmt.Fprintf(ctx.App.Writer, "%s already stored (instant upload)\n", result.Path)
		} else {
			fmt.Fprintf(ctx.App.Writer, "%s uploaded: %d chunks sent, %d skipped\n", result.Path, result.Uploaded, result.Skipped)
		}
		return nil
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "Show which chunks of a file the server already has",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{cacheFlag},
	Action: func(ctx *cli.Context) error {
		file, chunks, fp, err := fingerprintArg(ctx)
		if err != nil {
			return err
		}
		defer file.Close()

		negotiation, err := client.NewNegotiator(newTransport(ctx)).Check(ctx.Context, fp, file.Suffix)
		if err != nil {
			return err
		}

		if negotiation.Exists {
			fmt.Fprintf(ctx.App.Writer, "%s: stored on server\n", fp)
			return nil
		}
		fmt.Fprintf(ctx.App.Writer, "%s: %d of %d chunks on server, %d pending\n", fp, len(negotiation.Known), len(chunks), len(negotiation.Prune(chunks)))
		return nil
	},
}

var hashCmd = &cli.Command{
	Name:      "hash",
	Usage:     "Print the content fingerprint of a file",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{cacheFlag},
	Action: func(ctx *cli.Context) error {
		file, _, fp, err := fingerprintArg(ctx)
		if err != nil {
			return err
		}
		defer file.Close()

		fmt.Fprintln(ctx.App.Writer, fp)
		return nil
	},
}

func newTransport(ctx *cli.Context) *client.HTTPTransport {
	return client.NewHTTPTransport(ctx.String("server"), nil, ctx.Duration("timeout"))
}

func openCache(ctx *cli.Context) (*client.FingerprintCache, error) {
	dir := ctx.String("cache-dir")
	if dir == "" {
		return nil, nil
	}
	return client.OpenFingerprintCache(dir)
}

func fingerprintArg(ctx *cli.Context) (*client.File, []client.Chunk, string, error) {
	file, err := client.OpenFile(ctx.Args().First())
	if err != nil {
		return nil, nil, "", err
	}

	chunks, err := client.Split(file.Size, ctx.Int64("chunk-size"))
	if err != nil {
		file.Close()
		return nil, nil, "", err
	}

	cache, err := openCache(ctx)
	if err != nil {
		file.Close()
		return nil, nil, "", err
	}
	if cache != nil {
		defer cache.Close()
	}

	uploader := client.NewUploader(nil, client.Options{Cache: cache, OnFingerprintProgress: stepLogger("Fingerprinting")})
	fp, err := uploader.Fingerprint(ctx.Context, file, chunks)
	if err != nil {
		file.Close()
		return nil, nil, "", err
	}
	return file, chunks, fp, nil
}

// stepLogger logs a progress percentage each time it crosses a 10% step.
func stepLogger(label string) func(percent float64) {
	last := -1.0
	return func(percent float64) {
		step := math.Floor(percent/10) * 10
		if step <= last {
			return
		}
		last = step
		log.Info().Float64("percent", step).Msg(label)
	}
}
