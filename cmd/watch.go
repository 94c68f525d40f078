package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hydrusband/fetchd/internal/jobs"
	"github.com/hydrusband/fetchd/internal/shared"
	"github.com/hydrusband/fetchd/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch subscribes to a job's progress channel on a running service and
// renders events in an interactive terminal view.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	channel := cmd.StringArg("channel")
	if channel == "" {
		return fmt.Errorf("%w: channel or job id required", shared.ErrMissingArgument)
	}
	if cmd.Bool("swarm") && !strings.HasPrefix(channel, "swarm_") {
		channel = jobs.SwarmChannel(channel)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/fetchd-watch.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	wsURL := r.websocketURL(cmd.String("server"), "/ws/"+channel)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	updates := make(chan ui.Update)
	go func() {
		defer close(updates)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				r.logger.Debug("websocket closed", "channel", channel, "error", err)
				return
			}
			update, err := ui.DecodeUpdate(payload)
			if err != nil {
				r.logger.Warn("skipping malformed event", "error", err)
				continue
			}
			updates <- update
		}
	}()

	model := ui.NewModel(channel, updates)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running watch view: %w", err)
	}

	return nil
}

// websocketURL builds a ws:// or wss:// URL from the configured server address.
func (r *Runner) websocketURL(server, path string) string {
	url := r.serverURL(server, path)
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch a job's progress channel on a running service",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "channel"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "swarm",
				Usage: "Treat the argument as a swarm job id",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Service base URL (defaults to the configured host/port)",
			},
		},
		Action: r.Watch,
	}
}
