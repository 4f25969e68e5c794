package main

import (
	"context"
	"flag"
	"net/http"

	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/app"
	"github.com/artaoheed/testgate/internal/config"
	"github.com/artaoheed/testgate/internal/server"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatalf("failed to init pipeline: %v", err)
	}
	defer a.Close()

	srv := server.New(a, log)
	log.Infow("testgate running", "addr", cfg.Server.Addr, "provider", cfg.Model.Provider)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, srv.Handler()))
}
