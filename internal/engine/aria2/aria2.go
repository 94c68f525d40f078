// Package aria2 implements the swarm engine contract by shelling out to the
// aria2c binary and caching its periodic summary lines.
package aria2

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/shared"
)

// Client runs aria2c as a subprocess per transfer.
type Client struct {
	binaryPath string
	logger     *log.Logger
}

// New creates a Client for the given aria2c binary path (falls back to
// resolving "aria2c" on PATH when empty).
func New(binaryPath string, logger *log.Logger) *Client {
	if binaryPath == "" {
		binaryPath = "aria2c"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Client{binaryPath: binaryPath, logger: logger}
}

var _ engine.Swarm = (*Client)(nil)

// Add starts a transfer for locator (magnet URI or metainfo file path) into
// saveDir and returns a handle backed by the process's summary output.
func (c *Client) Add(ctx context.Context, locator, saveDir string) (engine.Handle, error) {
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.binaryPath,
		"--seed-time=0",
		"--summary-interval=1",
		"--follow-torrent=mem",
		"--dir", saveDir,
		locator,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start aria2c: %w", err)
	}

	h := &handle{cmd: cmd, savePath: saveDir, state: "awaiting metadata"}
	go c.watch(h, stdout)
	return h, nil
}

// Remove kills the transfer's process. The handle stays readable but will
// never report completion.
func (c *Client) Remove(eh engine.Handle) error {
	h, ok := eh.(*handle)
	if !ok {
		return fmt.Errorf("%w: foreign swarm handle", shared.ErrInvalidArgument)
	}
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	return nil
}

// watch drains the process output into the handle's cached snapshot.
func (c *Client) watch(h *handle, stdout interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()

		if name, ok := parseFileLine(line); ok {
			h.recordFile(name)
			continue
		}
		if strings.Contains(line, "Download complete:") {
			h.markComplete()
			continue
		}
		if s, ok := parseSummaryLine(line); ok {
			h.applySummary(s)
		}
	}

	if err := h.cmd.Wait(); err == nil {
		// Exit 0 with no explicit completion line still means done.
		h.markComplete()
	} else {
		c.logger.Debug("aria2c exited", "error", err)
	}
	h.markExited()
}

// handle caches the latest engine-reported state behind a mutex so status
// reads never touch process I/O.
type handle struct {
	cmd *exec.Cmd

	mu        sync.Mutex
	savePath  string
	fileCount int
	name      string
	stats     engine.SwarmStats
	totalSize int64
	metaReady bool
	complete  bool
	exited    bool
	state     string
}

var _ engine.Handle = (*handle)(nil)

func (h *handle) Metadata() (engine.SwarmMeta, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.metaReady {
		return engine.SwarmMeta{}, false
	}
	return engine.SwarmMeta{Name: h.name, TotalSize: h.totalSize, FileCount: h.fileCount}, true
}

func (h *handle) Stats() engine.SwarmStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := h.stats
	stats.State = h.state
	if h.complete {
		stats.Progress = 1
		stats.State = "complete"
	}
	return stats
}

func (h *handle) Complete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.complete
}

func (h *handle) SavePath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.savePath
}

func (h *handle) recordFile(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fileCount++
	if h.name == "" {
		h.name = name
	}
}

func (h *handle) markComplete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.complete = true
	h.state = "complete"
}

func (h *handle) markExited() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	if !h.complete {
		h.state = "stopped"
	}
}

func (h *handle) applySummary(s summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats = engine.SwarmStats{
		DownloadRate:  s.downloadRate,
		UploadRate:    s.uploadRate,
		Peers:         s.connections,
		Seeds:         s.seeders,
		TotalDownload: s.done,
		TotalUpload:   s.uploaded,
	}
	if s.total > 0 {
		h.totalSize = s.total
		h.stats.Progress = float64(s.done) / float64(s.total)
		h.state = "downloading"
		// A sized summary means the metainfo has been resolved.
		if h.name != "" || h.fileCount > 0 {
			h.metaReady = true
		}
	}
}

// summary is one parsed aria2c progress summary.
type summary struct {
	done, total  int64
	connections  int
	seeders      int
	downloadRate int64
	uploadRate   int64
	uploaded     int64
	eta          int64
}

var (
	// [#2089b0 400.0KiB/33.2MiB(1%) CN:1 SD:5 DL:115.7KiB UL:1.0KiB(2.5MiB) ETA:4m51s]
	summaryRe = regexp.MustCompile(`^\[#\w+\s+([\d.]+[KMGT]?i?B)/([\d.]+[KMGT]?i?B)\((\d+)%\)(.*)\]$`)
	fieldRe   = regexp.MustCompile(`(CN|SD|DL|UL|ETA):(\S+)`)
	fileRe    = regexp.MustCompile(`^FILE:\s+(.+)$`)
)

// parseFileLine extracts the file path from an aria2c "FILE:" report line.
func parseFileLine(line string) (string, bool) {
	m := fileRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseSummaryLine parses one bracketed aria2c summary line.
func parseSummaryLine(line string) (summary, bool) {
	m := summaryRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return summary{}, false
	}

	s := summary{
		done:  parseSize(m[1]),
		total: parseSize(m[2]),
	}

	for _, field := range fieldRe.FindAllStringSubmatch(m[4], -1) {
		switch field[1] {
		case "CN":
			s.connections, _ = strconv.Atoi(field[2])
		case "SD":
			s.seeders, _ = strconv.Atoi(field[2])
		case "DL":
			s.downloadRate = parseSize(field[2])
		case "UL":
			// UL:rate(total-uploaded)
			rate, uploaded, _ := strings.Cut(field[2], "(")
			s.uploadRate = parseSize(rate)
			s.uploaded = parseSize(strings.TrimSuffix(uploaded, ")"))
		case "ETA":
			if d, err := time.ParseDuration(field[2]); err == nil {
				s.eta = int64(d.Seconds())
			}
		}
	}

	return s, true
}

// parseSize converts an aria2c size token like "33.2MiB" into bytes.
func parseSize(token string) int64 {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}

	units := []struct {
		suffix string
		mult   float64
	}{
		{"KiB", 1 << 10}, {"MiB", 1 << 20}, {"GiB", 1 << 30}, {"TiB", 1 << 40}, {"B", 1},
	}

	mult := float64(1)
	for _, unit := range units {
		if strings.HasSuffix(token, unit.suffix) {
			mult = unit.mult
			token = strings.TrimSuffix(token, unit.suffix)
			break
		}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return int64(v * mult)
}
