package ui

import (
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgUpdate MsgKind = iota
	MsgStreamClosed
)

// Update is one decoded progress payload from the wire. All variants share
// the "status" discriminator; the remaining fields are populated per kind.
type Update struct {
	Status string `json:"status"`

	// media transfer fields
	DownloadedBytes int64   `json:"downloaded_bytes"`
	TotalBytes      int64   `json:"total_bytes"`
	Speed           float64 `json:"speed"`
	ETA             int64   `json:"eta"`

	// swarm transfer fields
	Progress      float64 `json:"progress"`
	DownloadRate  int64   `json:"download_rate"`
	UploadRate    int64   `json:"upload_rate"`
	NumPeers      int     `json:"num_peers"`
	NumSeeds      int     `json:"num_seeds"`
	TotalDownload int64   `json:"total_download"`

	// swarm metadata fields
	Name      string `json:"name"`
	TotalSize int64  `json:"total_size"`
	NumFiles  int    `json:"num_files"`

	// terminal payload fields
	Result   *UpdateResult `json:"result"`
	SavePath string        `json:"save_path"`
	Error    string        `json:"error"`
}

// UpdateResult is the result payload of a finished media job.
type UpdateResult struct {
	FinalPath string `json:"final_path"`
}

// DecodeUpdate parses one wire payload.
func DecodeUpdate(payload []byte) (Update, error) {
	var u Update
	err := json.Unmarshal(payload, &u)
	return u, err
}

// updateMsg is the constructor for [MsgUpdate]
func updateMsg(u Update) Msg {
	return Msg{kind: MsgUpdate, data: u}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}
