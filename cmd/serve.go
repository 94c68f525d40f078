package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/hydrusband/fetchd/internal/jobs"
	"github.com/hydrusband/fetchd/internal/relay"
	"github.com/hydrusband/fetchd/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service: the job manager, progress relay and API
// endpoints, shutting down gracefully on SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}

	db, history, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	hub := relay.NewHub(r.logger)
	defer hub.Close()

	manager := jobs.NewManager(jobs.Options{
		Media:       r.media,
		Swarm:       r.swarm,
		Relay:       hub,
		History:     history,
		Logger:      r.logger,
		DownloadDir: r.config.Downloads.Dir,
		SwarmDir:    r.config.Downloads.SwarmDir,
	})

	router := server.NewBasicRouter()
	router.Use(
		server.RequestLogger(r.logger),
		server.CORS(),
		server.Throttle(r.config.Server.RequestsPerSecond),
	)

	api := server.NewAPI(manager, history, r.media, hub, r.logger)
	api.Register(router)

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := server.NewServer(addr, router, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the fetch service (HTTP API + progress websockets)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}
