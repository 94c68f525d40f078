// Package progress defines the closed set of progress events a fetch job
// emits over its subscription channel.
//
// Events are ephemeral: they are relayed to subscribers and never persisted.
// Each variant marshals to a JSON object whose "status" field discriminates
// the event kind on the wire. For a given job, exactly one [Started] is
// followed by zero or more intermediate events and exactly one terminal
// event ([Finished], [SwarmFinished], [Error] or [Cancelled]); nothing
// follows a terminal event on the same channel.
package progress

import "encoding/json"

// Kind is the wire discriminator for an event.
type Kind string

const (
	KindStarted      Kind = "started"
	KindDownloading  Kind = "downloading"
	KindMetadata     Kind = "metadata"
	KindFinishedFile Kind = "finished_file"
	KindFinished     Kind = "finished"
	KindError        Kind = "error"
	KindCancelled    Kind = "cancelled"
)

// Event is the closed union of progress event variants.
//
// The unexported method keeps the union closed so consumers can handle
// every case exhaustively in a type switch.
type Event interface {
	Kind() Kind
	isEvent()
}

// Terminal reports whether no further events may follow e on its channel.
func Terminal(e Event) bool {
	switch e.Kind() {
	case KindFinished, KindError, KindCancelled:
		return true
	}
	return false
}

// Marshal encodes an event as its JSON wire payload.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Started signals that the worker has begun executing the job.
type Started struct{}

func (Started) Kind() Kind { return KindStarted }
func (Started) isEvent()   {}

func (e Started) MarshalJSON() ([]byte, error) {
	return statusOnly(KindStarted)
}

// Downloading reports media transfer progress from an engine tick.
type Downloading struct {
	BytesDone  int64   `json:"downloaded_bytes"`
	BytesTotal int64   `json:"total_bytes"`
	Rate       float64 `json:"speed"`
	ETA        int64   `json:"eta"`
}

func (Downloading) Kind() Kind { return KindDownloading }
func (Downloading) isEvent()   {}

func (e Downloading) MarshalJSON() ([]byte, error) {
	type alias Downloading
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindDownloading, alias(e)})
}

// SwarmProgress reports swarm transfer progress from one monitoring poll.
//
// Shares the "downloading" wire status with [Downloading] but carries the
// swarm vocabulary (percent complete, peer and seed counts, both totals).
type SwarmProgress struct {
	Percent       float64 `json:"progress"`
	DownloadRate  int64   `json:"download_rate"`
	UploadRate    int64   `json:"upload_rate"`
	Peers         int     `json:"num_peers"`
	Seeds         int     `json:"num_seeds"`
	TotalDownload int64   `json:"total_download"`
	TotalUpload   int64   `json:"total_upload"`
	ETA           int64   `json:"eta"`
}

func (SwarmProgress) Kind() Kind { return KindDownloading }
func (SwarmProgress) isEvent()   {}

func (e SwarmProgress) MarshalJSON() ([]byte, error) {
	type alias SwarmProgress
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindDownloading, alias(e)})
}

// Metadata signals that swarm metadata became available (swarm jobs only).
type Metadata struct {
	Name      string `json:"name"`
	TotalSize int64  `json:"total_size"`
	FileCount int    `json:"num_files"`
}

func (Metadata) Kind() Kind { return KindMetadata }
func (Metadata) isEvent()   {}

func (e Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindMetadata, alias(e)})
}

// FinishedFile signals completion of one file within a media job
// (intermediate; the job itself is not yet done).
type FinishedFile struct{}

func (FinishedFile) Kind() Kind { return KindFinishedFile }
func (FinishedFile) isEvent()   {}

func (e FinishedFile) MarshalJSON() ([]byte, error) {
	return statusOnly(KindFinishedFile)
}

// Result carries the final output location of a media job.
type Result struct {
	FinalPath string `json:"final_path"`
}

// Finished is the successful terminal event for media jobs.
type Finished struct {
	Result Result `json:"result"`
}

func (Finished) Kind() Kind { return KindFinished }
func (Finished) isEvent()   {}

func (e Finished) MarshalJSON() ([]byte, error) {
	type alias Finished
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindFinished, alias(e)})
}

// SwarmFinished is the successful terminal event for swarm jobs.
type SwarmFinished struct {
	SavePath string `json:"save_path"`
}

func (SwarmFinished) Kind() Kind { return KindFinished }
func (SwarmFinished) isEvent()   {}

func (e SwarmFinished) MarshalJSON() ([]byte, error) {
	type alias SwarmFinished
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindFinished, alias(e)})
}

// Error is the terminal event for engine failures.
type Error struct {
	Message string `json:"error"`
}

func (Error) Kind() Kind { return KindError }
func (Error) isEvent()   {}

func (e Error) MarshalJSON() ([]byte, error) {
	type alias Error
	return json.Marshal(struct {
		Status Kind `json:"status"`
		alias
	}{KindError, alias(e)})
}

// Cancelled is the terminal event for cooperative cancellation. It is a
// distinct outcome, never folded into [Error].
type Cancelled struct{}

func (Cancelled) Kind() Kind { return KindCancelled }
func (Cancelled) isEvent()   {}

func (e Cancelled) MarshalJSON() ([]byte, error) {
	return statusOnly(KindCancelled)
}

func statusOnly(k Kind) ([]byte, error) {
	return json.Marshal(struct {
		Status Kind `json:"status"`
	}{k})
}
