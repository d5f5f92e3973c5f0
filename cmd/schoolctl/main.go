package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/neoschool/internal/schoolctl"
)

func main() {
	cfg := schoolctl.LoadConfig()

	flag.StringVar(&cfg.APIURL, "api", cfg.APIURL, "backend base URL")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := schoolctl.New(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "schoolctl:", err)
		os.Exit(1)
	}

	err = app.Run(ctx, flag.Args())
	if closeErr := app.Close(); closeErr != nil {
		fmt.Fprintln(os.Stderr, "schoolctl: close state:", closeErr)
	}

	switch {
	case errors.Is(err, schoolctl.ErrUsage):
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "schoolctl:", err)
		os.Exit(1)
	}
}
