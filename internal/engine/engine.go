// Package engine defines the invocation contracts for the external fetch
// engines. The engines themselves are opaque collaborators: the orchestration
// core only depends on the shapes declared here.
package engine

import (
	"context"
	"errors"
	"strings"
)

// Signal is a progress hook's verdict on whether the fetch should continue.
//
// Cancellation is cooperative data flow: the engine checks the hook's return
// value at every tick and unwinds with [ErrAborted] when told to stop.
type Signal int

const (
	Proceed Signal = iota
	Abort
)

// ErrAborted is returned by a media engine when a progress hook requested
// the fetch stop.
var ErrAborted = errors.New("fetch aborted by progress hook")

// Mode selects the media fetch policy.
type Mode string

const (
	ModeVideo Mode = "video" // best video+audio merged into one container
	ModeAudio Mode = "audio" // best audio, transcoded to a fixed codec
)

// Tick is one unit of underlying transfer progress reported to the hook.
type Tick struct {
	BytesDone  int64
	BytesTotal int64 // estimated when the engine cannot report an exact total
	Rate       float64
	ETA        int64
	// FileComplete marks the tick that ends one file of a multi-file fetch.
	FileComplete bool
}

// HookFunc receives each progress tick and decides whether to proceed.
type HookFunc func(Tick) Signal

// Request describes one media fetch.
type Request struct {
	Source         string
	OutputDir      string
	Mode           Mode
	FormatSelector string
}

// Result is what a media engine reports on success.
type Result struct {
	Title string
	Ext   string
}

// Media runs a media fetch to completion, invoking hook on every progress
// tick. Implementations must return [ErrAborted] (possibly wrapped) when the
// hook answers [Abort].
type Media interface {
	Fetch(ctx context.Context, req Request, hook HookFunc) (*Result, error)
}

// SwarmMeta is the metadata a swarm engine learns after joining a swarm.
type SwarmMeta struct {
	Name      string
	TotalSize int64
	FileCount int
}

// SwarmStats is a snapshot of swarm transfer state.
type SwarmStats struct {
	Progress      float64 // 0..1
	DownloadRate  int64   // bytes/s
	UploadRate    int64   // bytes/s
	Peers         int
	Seeds         int
	TotalDownload int64
	TotalUpload   int64
	State         string // engine-reported state label
}

// Handle is a live swarm transfer. All methods read cached snapshots and
// never block on engine I/O, so they are safe to call from a request path.
type Handle interface {
	Metadata() (SwarmMeta, bool)
	Stats() SwarmStats
	Complete() bool
	SavePath() string
}

// Swarm starts and stops swarm transfers.
type Swarm interface {
	Add(ctx context.Context, locator, saveDir string) (Handle, error)
	// Remove aborts the transfer and discards the engine's internal handle.
	Remove(h Handle) error
}

// IsVerification reports whether an engine failure looks like an upstream
// human-verification wall (anti-bot or captcha response). These are
// surfaced distinctly so clients can prompt the user instead of retrying.
func IsVerification(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"bot", "captcha", "verify"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
