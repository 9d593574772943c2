// Command bedrock runs the game server with the configuration in
// server.toml, creating that file with defaults on first start.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sago-mc/bedrock/server/srv"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	conf, err := srv.LoadConfig("server.toml")
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	server, err := srv.New(conf, log)
	if err != nil {
		log.Error("server start failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}
