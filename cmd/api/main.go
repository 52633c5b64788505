package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewdlop/DarkWebNote/internal/api"
	"github.com/ewdlop/DarkWebNote/internal/config"
	"github.com/ewdlop/DarkWebNote/internal/knowledge"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	listen := flag.String("listen", ":8080", "Listen address for the retrieval API")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		defaults := config.Default()
		cfg = &defaults
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}

	store := knowledge.Open(cfg.Knowledge.Path, logger)
	server := &http.Server{
		Addr:              *listen,
		Handler:           api.NewServer(store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("retrieval api listening", "addr", *listen, "documents", store.Count())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "api server stopped with error: %v\n", err)
		os.Exit(1)
	}
}
