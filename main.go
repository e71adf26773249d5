package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prappser/prappser_upload/internal"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", internal.DefaultConfigPath, "path to the YAML config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
		return
	}

	if err := internal.SetupLogging(config.Log); err != nil {
		log.Fatal().Err(err).Msg("Error configuring logging")
		return
	}

	server, err := internal.NewServer(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
}
