package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hydrusband/fetchd/internal/formatter"
)

// Model renders the live progress stream of one fetch job.
type Model struct {
	channel string
	updates <-chan Update

	keys keyMap
	help help.Model

	latest   Update
	meta     *Update
	terminal bool
	closed   bool
}

// NewModel creates a watch model consuming updates for channel.
func NewModel(channel string, updates <-chan Update) Model {
	return Model{
		channel: channel,
		updates: updates,
		keys:    newKeyMap(),
		help:    help.New(),
		latest:  Update{Status: "waiting"},
	}
}

// Init starts the read pump bridging the update channel into tea messages.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return streamClosedMsg()
		}
		return updateMsg(u)
	}
}

// Update implements the bubbletea update loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
	case Msg:
		switch msg.kind {
		case MsgUpdate:
			u := msg.data.(Update)
			if u.Status == "metadata" {
				m.meta = &u
			} else {
				m.latest = u
			}
			if isTerminal(u.Status) {
				m.terminal = true
			}
			return m, m.waitForUpdate()
		case MsgStreamClosed:
			m.closed = true
			if !m.terminal {
				m.latest = Update{Status: "disconnected"}
			}
		}
	}
	return m, nil
}

// View implements the bubbletea render pass.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("watching " + m.channel))
	b.WriteString("\n\n")

	if m.meta != nil {
		b.WriteString(fmt.Sprintf("%s (%s, %d files)\n",
			m.meta.Name, formatter.FormatBytes(m.meta.TotalSize), m.meta.NumFiles))
	}

	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderStatus() string {
	u := m.latest
	switch u.Status {
	case "waiting":
		return styles.warn.Render("waiting for events...")
	case "started":
		return styles.warn.Render("started")
	case "downloading":
		if u.NumPeers > 0 || u.Progress > 0 {
			return fmt.Sprintf("%s  ↓ %s  ↑ %s  peers %d  seeds %d  eta %s",
				formatter.FormatPercent(u.Progress),
				formatter.FormatRate(float64(u.DownloadRate)),
				formatter.FormatRate(float64(u.UploadRate)),
				u.NumPeers, u.NumSeeds,
				formatter.FormatETA(u.ETA))
		}
		return fmt.Sprintf("%s / %s  %s  eta %s",
			formatter.FormatBytes(u.DownloadedBytes),
			formatter.FormatBytes(u.TotalBytes),
			formatter.FormatRate(u.Speed),
			formatter.FormatETA(u.ETA))
	case "finished_file":
		return styles.ok.Render("file complete")
	case "finished":
		path := u.SavePath
		if u.Result != nil {
			path = u.Result.FinalPath
		}
		return styles.ok.Render("finished: " + path)
	case "error":
		return styles.err.Render("error: " + u.Error)
	case "cancelled":
		return styles.warn.Render("cancelled")
	case "disconnected":
		return styles.err.Render("stream disconnected")
	default:
		return u.Status
	}
}

func isTerminal(status string) bool {
	switch status {
	case "finished", "error", "cancelled":
		return true
	}
	return false
}
