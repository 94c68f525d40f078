// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the live progress stream of one fetch job: a media
// download's byte counts, rate and ETA, or a swarm transfer's percent,
// peer/seed counts and rates, followed by the job's terminal outcome.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel fed by the websocket read pump in
// the watch command, providing non-blocking rendering while the stream is
// live. Rendering stops at the terminal event; q or ctrl+c quits.
package ui
