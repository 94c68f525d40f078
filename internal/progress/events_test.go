package progress

import (
	"encoding/json"
	"testing"
)

func TestTerminal(t *testing.T) {
	tc := []struct {
		name  string
		event Event
		want  bool
	}{
		{name: "started is not terminal", event: Started{}, want: false},
		{name: "downloading is not terminal", event: Downloading{BytesDone: 10}, want: false},
		{name: "metadata is not terminal", event: Metadata{Name: "x"}, want: false},
		{name: "finished_file is not terminal", event: FinishedFile{}, want: false},
		{name: "finished is terminal", event: Finished{Result: Result{FinalPath: "/tmp/v.mp4"}}, want: true},
		{name: "swarm finished is terminal", event: SwarmFinished{SavePath: "/tmp/t"}, want: true},
		{name: "error is terminal", event: Error{Message: "boom"}, want: true},
		{name: "cancelled is terminal", event: Cancelled{}, want: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Terminal(tt.event); got != tt.want {
				t.Errorf("Terminal(%v) = %v, want %v", tt.event.Kind(), got, tt.want)
			}
		})
	}
}

func TestMarshalStatusDiscriminator(t *testing.T) {
	tc := []struct {
		name   string
		event  Event
		status string
	}{
		{name: "started", event: Started{}, status: "started"},
		{name: "media downloading", event: Downloading{BytesDone: 5, BytesTotal: 10}, status: "downloading"},
		{name: "swarm downloading", event: SwarmProgress{Percent: 50}, status: "downloading"},
		{name: "cancelled", event: Cancelled{}, status: "cancelled"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}

			var payload map[string]any
			if err := json.Unmarshal(raw, &payload); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}

			if payload["status"] != tt.status {
				t.Errorf("status = %v, want %s", payload["status"], tt.status)
			}
		})
	}
}

func TestFinishedPayloadShape(t *testing.T) {
	raw, err := Marshal(Finished{Result: Result{FinalPath: "/downloads/clip.mp4"}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var payload struct {
		Status string `json:"status"`
		Result struct {
			FinalPath string `json:"final_path"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if payload.Result.FinalPath != "/downloads/clip.mp4" {
		t.Errorf("final_path = %q, want /downloads/clip.mp4", payload.Result.FinalPath)
	}
}
