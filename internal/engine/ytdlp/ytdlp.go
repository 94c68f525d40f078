// Package ytdlp implements the media engine contract by shelling out to the
// yt-dlp binary and translating its line output into progress ticks.
package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/shared"
)

// Fetcher runs yt-dlp as a subprocess.
type Fetcher struct {
	binaryPath string
	logger     *log.Logger
}

// New creates a Fetcher for the given yt-dlp binary path (falls back to
// resolving "yt-dlp" on PATH when empty).
func New(binaryPath string, logger *log.Logger) *Fetcher {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{binaryPath: binaryPath, logger: logger}
}

var _ engine.Media = (*Fetcher)(nil)

var (
	// [download]  42.5% of ~ 10.00MiB at 512.00KiB/s ETA 00:12
	progressRe = regexp.MustCompile(`^\[download\]\s+([\d.]+)% of ~?\s*([\d.]+)([KMGT]?i?B)(?:\s+at\s+([\d.]+)([KMGT]?i?B)/s)?(?:\s+ETA\s+(\S+))?`)
	// [download] 100% of 10.00MiB in 00:05
	fileDoneRe = regexp.MustCompile(`^\[download\]\s+100%\s+of\s+.*\s+in\s+`)
	// destination lines name the file being written; the last one seen wins
	destRe = regexp.MustCompile(`^\[(?:download|ExtractAudio)\] Destination: (.+)$`)
	// [Merger] Merging formats into "downloads/title.mp4"
	mergeRe = regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`)
)

// Fetch downloads req.Source into req.OutputDir, reporting each parsed
// progress line to hook. Returns [engine.ErrAborted] when hook answers Abort.
func (f *Fetcher) Fetch(ctx context.Context, req engine.Request, hook engine.HookFunc) (*engine.Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	args := buildArgs(req)
	cmd := exec.CommandContext(ctx, f.binaryPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	var (
		aborted  bool
		lastDest string
	)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := destRe.FindStringSubmatch(line); m != nil {
			lastDest = m[1]
			continue
		}
		if m := mergeRe.FindStringSubmatch(line); m != nil {
			lastDest = m[1]
			continue
		}

		tick, ok := parseProgressLine(line)
		if !ok {
			continue
		}

		if hook(tick) == engine.Abort {
			aborted = true
			_ = cmd.Process.Kill()
			break
		}
	}

	// Drain so Wait can reap the process even after an abort.
	for scanner.Scan() {
	}

	waitErr := cmd.Wait()

	if aborted {
		return nil, engine.ErrAborted
	}
	if waitErr != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", waitErr, tail(stderr.String()))
	}

	result := &engine.Result{}
	if lastDest != "" {
		base := filepath.Base(lastDest)
		result.Ext = strings.TrimPrefix(filepath.Ext(base), ".")
		result.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return result, nil
}

// buildArgs assembles the yt-dlp argument list for a request.
//
// Audio mode grabs the best audio stream and transcodes to mp3 at 192K;
// video mode (the default) merges best video+audio into mp4 unless the
// caller picked a format selector of its own.
func buildArgs(req engine.Request) []string {
	args := []string{
		"--newline",
		"--no-warnings",
		"--no-check-certificate",
		"-o", filepath.Join(req.OutputDir, "%(title)s.%(ext)s"),
	}

	if req.Mode == engine.ModeAudio {
		selector := req.FormatSelector
		if selector == "" {
			selector = "bestaudio"
		}
		args = append(args, "-f", selector, "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	} else {
		selector := req.FormatSelector
		if selector == "" {
			selector = "bestvideo+bestaudio/best"
		}
		args = append(args, "-f", selector, "--merge-output-format", "mp4")
	}

	return append(args, req.Source)
}

// parseProgressLine translates one yt-dlp --newline progress line into a Tick.
func parseProgressLine(line string) (engine.Tick, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		if fileDoneRe.MatchString(line) {
			return engine.Tick{FileComplete: true}, true
		}
		return engine.Tick{}, false
	}

	percent, _ := strconv.ParseFloat(m[1], 64)
	total := parseSize(m[2], m[3])
	done := int64(percent / 100 * float64(total))

	var rate float64
	if m[4] != "" {
		rate = float64(parseSize(m[4], m[5]))
	}

	return engine.Tick{
		BytesDone:  done,
		BytesTotal: total,
		Rate:       rate,
		ETA:        parseClock(m[6]),
	}, true
}

// parseSize converts a value/unit pair like ("10.00", "MiB") into bytes.
func parseSize(value, unit string) int64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	mult := float64(1)
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(unit, "B"), "i")) {
	case "K":
		mult = 1 << 10
	case "M":
		mult = 1 << 20
	case "G":
		mult = 1 << 30
	case "T":
		mult = 1 << 40
	}
	return int64(v * mult)
}

// parseClock converts "SS", "MM:SS" or "HH:MM:SS" into seconds.
// Unknown or missing values report 0.
func parseClock(clock string) int64 {
	if clock == "" || clock == "Unknown" {
		return 0
	}

	var total int64
	for _, part := range strings.Split(clock, ":") {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// tail returns the last few lines of engine stderr for error messages.
func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
