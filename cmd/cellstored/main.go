// cellstored serves a cellstore working directory over the wire protocol.
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tuannm99/cellstore"
	"github.com/tuannm99/cellstore/internal"
	"github.com/tuannm99/cellstore/server/cellwire"
)

var CLI struct {
	Config  string `help:"Path to a yaml config file." type:"path"`
	Addr    string `help:"Listen address, overrides the config." default:""`
	Workdir string `help:"Working directory for database files, overrides the config." default:""`
	Debug   bool   `help:"Enable debug logging."`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("cellstored"),
		kong.Description("cellstore database server"),
		kong.UsageOnError(),
	)

	cfg := &internal.CellstoreConfig{}
	cfg.Storage.Workdir = "./data"
	cfg.Server.Addr = "127.0.0.1:5462"
	cfg.Server.MaxConnections = 64

	if CLI.Config != "" {
		loaded, err := internal.LoadConfig(CLI.Config)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	if CLI.Addr != "" {
		cfg.Server.Addr = CLI.Addr
	}
	if CLI.Workdir != "" {
		cfg.Storage.Workdir = CLI.Workdir
	}

	level := slog.LevelInfo
	if CLI.Debug || cfg.Server.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var opts []cellstore.Option
	if cfg.Storage.SegmentThreshold > 0 {
		opts = append(opts, cellstore.WithSegmentThreshold(cfg.Storage.SegmentThreshold))
	}
	if cfg.Storage.SparseInterval > 0 {
		opts = append(opts, cellstore.WithSparseInterval(cfg.Storage.SparseInterval))
	}

	engine, err := cellstore.Open(cfg.Storage.Workdir, opts...)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer func() { _ = engine.Close() }()

	srv, err := cellwire.NewServer(engine, cellwire.ServerConfig{
		Addr:           cfg.Server.Addr,
		MaxConnections: cfg.Server.MaxConnections,
		Websocket:      cfg.Server.Websocket,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	slog.Info("cellstored starting", "workdir", cfg.Storage.Workdir, "addr", cfg.Server.Addr)
	if err := srv.Run(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
