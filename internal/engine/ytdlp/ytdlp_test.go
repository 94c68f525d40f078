package ytdlp

import (
	"testing"

	"github.com/hydrusband/fetchd/internal/engine"
)

func TestParseProgressLine(t *testing.T) {
	tc := []struct {
		name string
		line string
		want engine.Tick
		ok   bool
	}{
		{
			name: "full progress line",
			line: "[download]  50.0% of 10.00MiB at 512.00KiB/s ETA 00:10",
			want: engine.Tick{BytesDone: 5 << 20, BytesTotal: 10 << 20, Rate: 512 << 10, ETA: 10},
			ok:   true,
		},
		{
			name: "estimated total",
			line: "[download]  25.0% of ~ 100.00MiB at 1.00MiB/s ETA 01:15",
			want: engine.Tick{BytesDone: 25 << 20, BytesTotal: 100 << 20, Rate: 1 << 20, ETA: 75},
			ok:   true,
		},
		{
			name: "unknown eta",
			line: "[download]  10.0% of 10.00MiB at 512.00KiB/s ETA Unknown",
			want: engine.Tick{BytesDone: 1 << 20, BytesTotal: 10 << 20, Rate: 512 << 10, ETA: 0},
			ok:   true,
		},
		{
			name: "file summary line",
			line: "[download] 100% of 10.00MiB in 00:05",
			want: engine.Tick{FileComplete: true},
			ok:   true,
		},
		{
			name: "destination line is not progress",
			line: "[download] Destination: downloads/clip.mp4",
			ok:   false,
		},
		{
			name: "unrelated output",
			line: "[youtube] abc123: Downloading webpage",
			ok:   false,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgressLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("parseProgressLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("parseProgressLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tc := []struct {
		clock string
		want  int64
	}{
		{"00:10", 10},
		{"01:02:03", 3723},
		{"45", 45},
		{"Unknown", 0},
		{"", 0},
	}

	for _, tt := range tc {
		if got := parseClock(tt.clock); got != tt.want {
			t.Errorf("parseClock(%q) = %d, want %d", tt.clock, got, tt.want)
		}
	}
}

func TestBuildArgs(t *testing.T) {
	t.Run("video defaults", func(t *testing.T) {
		args := buildArgs(engine.Request{Source: "https://example.com/v", OutputDir: "out", Mode: engine.ModeVideo})

		assertContainsPair(t, args, "-f", "bestvideo+bestaudio/best")
		assertContainsPair(t, args, "--merge-output-format", "mp4")
		if args[len(args)-1] != "https://example.com/v" {
			t.Errorf("source should be the last argument, got %q", args[len(args)-1])
		}
	})

	t.Run("audio defaults", func(t *testing.T) {
		args := buildArgs(engine.Request{Source: "https://example.com/v", OutputDir: "out", Mode: engine.ModeAudio})

		assertContainsPair(t, args, "-f", "bestaudio")
		assertContainsPair(t, args, "--audio-format", "mp3")
		assertContainsPair(t, args, "--audio-quality", "192K")
	})

	t.Run("explicit selector wins", func(t *testing.T) {
		args := buildArgs(engine.Request{Source: "x", OutputDir: "out", Mode: engine.ModeVideo, FormatSelector: "137+bestaudio"})
		assertContainsPair(t, args, "-f", "137+bestaudio")
	})
}

func assertContainsPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i, arg := range args {
		if arg == flag && i+1 < len(args) && args[i+1] == value {
			return
		}
	}
	t.Errorf("args %v missing %s %s", args, flag, value)
}

func TestDestinationTracking(t *testing.T) {
	tc := []struct {
		line string
		want string
	}{
		{"[download] Destination: downloads/clip.f137.mp4", "downloads/clip.f137.mp4"},
		{"[ExtractAudio] Destination: downloads/song.mp3", "downloads/song.mp3"},
		{`[Merger] Merging formats into "downloads/clip.mp4"`, "downloads/clip.mp4"},
	}

	for _, tt := range tc {
		var got string
		if m := destRe.FindStringSubmatch(tt.line); m != nil {
			got = m[1]
		} else if m := mergeRe.FindStringSubmatch(tt.line); m != nil {
			got = m[1]
		}
		if got != tt.want {
			t.Errorf("destination from %q = %q, want %q", tt.line, got, tt.want)
		}
	}
}
