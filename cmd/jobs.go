package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hydrusband/fetchd/internal/formatter"
	"github.com/hydrusband/fetchd/internal/jobs"
	"github.com/hydrusband/fetchd/internal/progress"
	"github.com/hydrusband/fetchd/internal/shared"
	"github.com/urfave/cli/v3"
)

// printRelay renders progress events as lines on the runner's output. It
// stands in for the websocket relay when a job runs in the foreground.
type printRelay struct {
	out io.Writer
}

func (p *printRelay) Publish(_ string, e progress.Event) {
	switch ev := e.(type) {
	case progress.Started:
		fmt.Fprintln(p.out, "started")
	case progress.Downloading:
		fmt.Fprintf(p.out, "%s / %s  %s  eta %s\n",
			formatter.FormatBytes(ev.BytesDone),
			formatter.FormatBytes(ev.BytesTotal),
			formatter.FormatRate(ev.Rate),
			formatter.FormatETA(ev.ETA))
	case progress.SwarmProgress:
		fmt.Fprintf(p.out, "%s  ↓ %s  ↑ %s  peers %d  seeds %d  eta %s\n",
			formatter.FormatPercent(ev.Percent),
			formatter.FormatRate(float64(ev.DownloadRate)),
			formatter.FormatRate(float64(ev.UploadRate)),
			ev.Peers, ev.Seeds,
			formatter.FormatETA(ev.ETA))
	case progress.Metadata:
		fmt.Fprintf(p.out, "metadata: %s (%s, %d files)\n",
			ev.Name, formatter.FormatBytes(ev.TotalSize), ev.FileCount)
	case progress.FinishedFile:
		fmt.Fprintln(p.out, "file complete")
	case progress.Finished:
		fmt.Fprintf(p.out, "finished: %s\n", ev.Result.FinalPath)
	case progress.SwarmFinished:
		fmt.Fprintf(p.out, "finished: %s\n", ev.SavePath)
	case progress.Error:
		fmt.Fprintf(p.out, "error: %s\n", ev.Message)
	case progress.Cancelled:
		fmt.Fprintln(p.out, "cancelled")
	}
}

// runForeground starts a job through start and blocks until it completes,
// requesting cancellation when the context is interrupted.
func (r *Runner) runForeground(ctx context.Context, start func(m *jobs.Manager) (string, error)) error {
	db, history, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	manager := jobs.NewManager(jobs.Options{
		Media:       r.media,
		Swarm:       r.swarm,
		Relay:       &printRelay{out: r.output},
		History:     history,
		Logger:      r.logger,
		DownloadDir: r.config.Downloads.Dir,
		SwarmDir:    r.config.Downloads.SwarmDir,
	})

	id, err := start(manager)
	if err != nil {
		return err
	}
	r.logger.Info("job started", "id", id)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cancelled bool
	for manager.Running(id) {
		select {
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				if err := manager.CancelJob(id); err != nil {
					r.logger.Warn("cancel failed", "id", id, "error", err)
				}
			}
		case <-time.After(200 * time.Millisecond):
		}
	}

	return nil
}

// Fetch runs a media download in the foreground.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	source := cmd.StringArg("source")
	if source == "" {
		return fmt.Errorf("%w: source URL required", shared.ErrMissingSource)
	}

	mode := "video"
	if cmd.Bool("audio") {
		mode = "audio"
	}

	return r.runForeground(ctx, func(m *jobs.Manager) (string, error) {
		return m.StartJob(cmd.String("id"), source, mode, cmd.String("format"))
	})
}

// SwarmAdd runs a swarm transfer in the foreground.
func (r *Runner) SwarmAdd(ctx context.Context, cmd *cli.Command) error {
	locator := cmd.StringArg("locator")
	if locator == "" {
		return fmt.Errorf("%w: magnet URI or metainfo path required", shared.ErrMissingLocator)
	}

	return r.runForeground(ctx, func(m *jobs.Manager) (string, error) {
		return m.AddSwarmJob(cmd.String("id"), locator)
	})
}

// SwarmStatus queries a running service for a swarm job's transfer snapshot.
func (r *Runner) SwarmStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id required", shared.ErrMissingArgument)
	}

	url := r.serverURL(cmd.String("server"), "/api/swarm/"+id+"/status")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return r.doJSON(req, cmd.Bool("pretty"))
}

// Cancel asks a running service to cancel a job.
func (r *Runner) Cancel(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id required", shared.ErrMissingArgument)
	}

	endpoint := "/api/downloads/cancel"
	if cmd.Bool("swarm") {
		endpoint = "/api/swarm/cancel"
	}

	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := r.serverURL(cmd.String("server"), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return r.doJSON(req, true)
}

// doJSON performs a request against the service and echoes the JSON response.
func (r *Runner) doJSON(req *http.Request, pretty bool) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("service returned status %d: %v", resp.StatusCode, payload)
	}

	return r.writeJSON(payload, pretty)
}

func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download media from a URL in the foreground",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "source"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Explicit job id (derived from the source when omitted)",
			},
			&cli.BoolFlag{
				Name:  "audio",
				Usage: "Extract audio instead of downloading video",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Engine format selector (default best available)",
			},
		},
		Action: r.Fetch,
	}
}

func swarmCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "swarm",
		Usage: "Peer-to-peer transfers",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Run a swarm transfer in the foreground",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "locator"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Explicit job id (derived from the locator when omitted)",
					},
				},
				Action: r.SwarmAdd,
			},
			{
				Name:  "status",
				Usage: "Query a running service for a transfer snapshot",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Usage: "Service base URL (defaults to the configured host/port)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SwarmStatus,
			},
		},
	}
}

func cancelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Ask a running service to cancel a job",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "swarm",
				Usage: "Cancel a swarm job",
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "Service base URL (defaults to the configured host/port)",
			},
		},
		Action: r.Cancel,
	}
}
