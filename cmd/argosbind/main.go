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

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pbudner/argosbind/api"
	"github.com/pbudner/argosbind/config"
	"github.com/pbudner/argosbind/encoding"
	"github.com/pbudner/argosbind/storage"
	"github.com/pbudner/argosbind/stores"
	"go.uber.org/zap"
)

var (
	GitCommit = "live"
	Version   = ""
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	log := logger.Sugar()

	codec, err := encoding.Lookup(cfg.Codec)
	if err != nil {
		log.Fatal(err)
	}

	disk, err := storage.NewDiskStorage(storage.Config{
		Path:     cfg.Database.Path,
		InMemory: cfg.Database.InMemory,
	})
	if err != nil {
		log.Fatalw("could not open storage", "path", cfg.Database.Path, "error", err)
	}
	recordStore := stores.NewRecordStore(disk, codec)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	prometheus.NewPrometheus("argosbind", nil).Use(e)
	api.RegisterApiHandlers(e.Group(cfg.BaseURL+"/api"), Version, GitCommit, recordStore)

	go func() {
		log.Infow("starting http server", "listener", cfg.Listener, "codec", codec.Name())
		if err := e.Start(cfg.Listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	// wait here before closing all workers
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-termChan // Blocks here until interrupted
	log.Info("SIGTERM received, initiating shutdown now")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("could not shut down http server", "error", err)
	}
	recordStore.Close()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}
