package aria2

import "testing"

var (
	kiB = float64(1 << 10)
	miB = float64(1 << 20)
)

func TestParseSummaryLine(t *testing.T) {
	tc := []struct {
		name string
		line string
		want summary
		ok   bool
	}{
		{
			name: "transfer with peers and eta",
			line: "[#2089b0 400.0KiB/33.2MiB(1%) CN:3 SD:5 DL:115.7KiB ETA:4m51s]",
			want: summary{
				done:         400 << 10,
				total:        int64(33.2 * miB),
				connections:  3,
				seeders:      5,
				downloadRate: int64(115.7 * kiB),
				eta:          291,
			},
			ok: true,
		},
		{
			name: "seeding with upload totals",
			line: "[#2089b0 33.2MiB/33.2MiB(100%) CN:2 SD:1 DL:0B UL:1.0MiB(2.5MiB) ETA:10s]",
			want: summary{
				done:       int64(33.2 * miB),
				total:      int64(33.2 * miB),
				connections: 2,
				seeders:     1,
				uploadRate:  1 << 20,
				uploaded:    int64(2.5 * (1 << 20)),
				eta:         10,
			},
			ok: true,
		},
		{
			name: "not a summary",
			line: "08/29 10:00:00 [NOTICE] Downloading 1 item(s)",
			ok:   false,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSummaryLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("parseSummaryLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("parseSummaryLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseFileLine(t *testing.T) {
	if name, ok := parseFileLine("FILE: /downloads/swarm/ubuntu.iso"); !ok || name != "/downloads/swarm/ubuntu.iso" {
		t.Errorf("parseFileLine = %q/%v, want /downloads/swarm/ubuntu.iso/true", name, ok)
	}
	if _, ok := parseFileLine("Download complete: /downloads/swarm/ubuntu.iso"); ok {
		t.Error("completion line should not parse as a file line")
	}
}

func TestParseSize(t *testing.T) {
	tc := []struct {
		token string
		want  int64
	}{
		{"400.0KiB", 400 << 10},
		{"33.2MiB", int64(33.2 * miB)},
		{"1GiB", 1 << 30},
		{"512B", 512},
		{"0B", 0},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tc {
		if got := parseSize(tt.token); got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.token, got, tt.want)
		}
	}
}

func TestHandleSnapshots(t *testing.T) {
	h := &handle{savePath: "/downloads/swarm", state: "awaiting metadata"}

	if _, ok := h.Metadata(); ok {
		t.Error("metadata should not be ready before the engine reports it")
	}

	h.recordFile("/downloads/swarm/ubuntu.iso")
	h.applySummary(summary{done: 10, total: 100, connections: 4, seeders: 2, downloadRate: 1024})

	meta, ok := h.Metadata()
	if !ok {
		t.Fatal("metadata should be ready after a sized summary")
	}
	if meta.Name != "/downloads/swarm/ubuntu.iso" || meta.TotalSize != 100 || meta.FileCount != 1 {
		t.Errorf("metadata = %+v", meta)
	}

	stats := h.Stats()
	if stats.Progress != 0.1 || stats.Peers != 4 || stats.Seeds != 2 || stats.DownloadRate != 1024 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.State != "downloading" {
		t.Errorf("state = %s, want downloading", stats.State)
	}

	h.markComplete()
	stats = h.Stats()
	if !h.Complete() || stats.Progress != 1 || stats.State != "complete" {
		t.Errorf("after completion: complete=%v stats=%+v", h.Complete(), stats)
	}
}
