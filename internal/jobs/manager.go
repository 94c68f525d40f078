// Package jobs is the orchestration core: it runs each fetch as an
// independently cancellable worker, relays progress events to the
// subscription channel for the job, and guarantees exactly one terminal
// history record per job whatever the outcome.
package jobs

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/models"
	"github.com/hydrusband/fetchd/internal/progress"
	"github.com/hydrusband/fetchd/internal/shared"
)

// Publisher is the slice of the progress relay the manager needs.
type Publisher interface {
	Publish(channel string, event progress.Event)
}

// HistoryWriter is the slice of the history store the manager needs.
type HistoryWriter interface {
	Save(record *models.HistoryRecord) error
}

// Manager is the orchestration façade. It owns the job registry and wires
// engines, relay and history store together; construct one at process start
// and pass it to request handlers explicitly.
type Manager struct {
	registry *Registry
	relay    Publisher
	history  HistoryWriter
	media    engine.Media
	swarm    engine.Swarm
	logger   *log.Logger

	downloadDir string
	swarmDir    string

	metaPollInterval     time.Duration
	transferPollInterval time.Duration
}

// Options carries the manager's collaborators and tuning knobs.
type Options struct {
	Media   engine.Media
	Swarm   engine.Swarm
	Relay   Publisher
	History HistoryWriter
	Logger  *log.Logger

	DownloadDir string
	SwarmDir    string

	// Poll cadence for the swarm monitoring loop. Zero values take the
	// defaults (100ms while awaiting metadata, 1s while transferring).
	MetaPollInterval     time.Duration
	TransferPollInterval time.Duration
}

// NewManager creates a Manager from opts.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	m := &Manager{
		registry:             NewRegistry(),
		relay:                opts.Relay,
		history:              opts.History,
		media:                opts.Media,
		swarm:                opts.Swarm,
		logger:               logger,
		downloadDir:          opts.DownloadDir,
		swarmDir:             opts.SwarmDir,
		metaPollInterval:     opts.MetaPollInterval,
		transferPollInterval: opts.TransferPollInterval,
	}
	if m.metaPollInterval <= 0 {
		m.metaPollInterval = 100 * time.Millisecond
	}
	if m.transferPollInterval <= 0 {
		m.transferPollInterval = time.Second
	}
	return m
}

// SwarmChannel is the subscription channel id for a swarm job. The namespace
// keeps media and swarm progress streams apart even when ids coincide.
func SwarmChannel(id string) string {
	return "swarm_" + id
}

// ParseMode validates a client-supplied mode string, defaulting to video.
func ParseMode(s string) (engine.Mode, error) {
	switch engine.Mode(s) {
	case "":
		return engine.ModeVideo, nil
	case engine.ModeVideo:
		return engine.ModeVideo, nil
	case engine.ModeAudio:
		return engine.ModeAudio, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidInput, s)
	}
}

// StartJob begins a media fetch and returns its job id immediately.
//
// When id is empty one is derived deterministically from source. A second
// start while the id is registered fails with [shared.ErrAlreadyRunning]
// and leaves the running job untouched.
func (m *Manager) StartJob(id, source, mode, formatSelector string) (string, error) {
	if source == "" {
		return "", shared.ErrMissingSource
	}

	parsedMode, err := ParseMode(mode)
	if err != nil {
		return "", err
	}

	if id == "" {
		id = shared.DeriveJobID(source)
	}

	token := NewToken()
	e := &entry{token: token, done: make(chan struct{})}
	if err := m.registry.register(id, e); err != nil {
		return "", err
	}

	m.logger.Info("starting media job", "id", id, "source", source, "mode", parsedMode)
	m.launch(id, source, models.KindMedia, e, func() outcome {
		return m.runMedia(id, source, parsedMode, formatSelector, token)
	})
	return id, nil
}

// AddSwarmJob begins a swarm fetch for a magnet URI or metainfo locator and
// returns its job id immediately. Progress is published under
// [SwarmChannel](id).
func (m *Manager) AddSwarmJob(id, locator string) (string, error) {
	if locator == "" {
		return "", shared.ErrMissingLocator
	}

	if id == "" {
		id = shared.DeriveJobID(locator)
	}

	token := NewToken()
	e := &entry{token: token, done: make(chan struct{})}
	if err := m.registry.register(id, e); err != nil {
		return "", err
	}

	m.logger.Info("starting swarm job", "id", id, "locator", locator)
	m.launch(id, locator, models.KindSwarm, e, func() outcome {
		return m.runSwarm(id, locator, token)
	})
	return id, nil
}

// CancelJob requests cooperative cancellation of a running job. The return
// acknowledges the request only; the worker stops at its next token check.
func (m *Manager) CancelJob(id string) error {
	token, ok := m.registry.token(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	token.Cancel()
	m.logger.Info("cancellation requested", "id", id)
	return nil
}

// SwarmStatus returns a snapshot of a running swarm job's transfer state.
// The snapshot is read from the engine handle's cache and never blocks on
// engine I/O.
func (m *Manager) SwarmStatus(id string) (engine.SwarmStats, error) {
	h, ok := m.registry.handle(id)
	if !ok {
		return engine.SwarmStats{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return h.Stats(), nil
}

// Running reports whether id has a live job.
func (m *Manager) Running(id string) bool {
	return m.registry.Running(id)
}

// outcome is what a worker reports to the completion watcher.
type outcome struct {
	status   models.JobStatus
	filename string
	meta     string
}

// launch spawns the worker and, independently, the completion watcher that
// writes exactly one history record and unregisters the job once the worker
// terminates for any reason.
func (m *Manager) launch(id, source string, kind models.JobKind, e *entry, run func() outcome) {
	results := make(chan outcome, 1)

	go func() {
		results <- run()
	}()

	go func() {
		o := <-results
		m.complete(id, source, kind, o)
		close(e.done)
	}()
}

// complete performs the terminal bookkeeping for one job. The history write
// is create-or-update keyed by id, so re-running this path cannot duplicate
// records. A failed write is logged and nothing more: the terminal progress
// event has already been delivered.
func (m *Manager) complete(id, source string, kind models.JobKind, o outcome) {
	record := models.NewHistoryRecord(id, source, kind, o.status)
	now := time.Now().UTC()
	record.FinishedAt = &now
	record.Filename = o.filename
	record.Meta = o.meta

	if err := m.history.Save(record); err != nil {
		m.logger.Error("failed to write history record", "id", id, "error", err)
	}

	m.registry.unregister(id)
	m.logger.Info("job finished", "id", id, "status", o.status)
}
