package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"sort"
	"strings"
)

// FormatOption is one selectable format offered to clients.
type FormatOption struct {
	FormatID   string  `json:"format_id"`
	Quality    string  `json:"quality"`
	Resolution string  `json:"resolution,omitempty"`
	Ext        string  `json:"ext"`
	Filesize   int64   `json:"filesize"`
	Abr        float64 `json:"abr,omitempty"`

	height int
}

// Listing is the probe response for one source URL.
type Listing struct {
	Title        string         `json:"title"`
	Thumbnail    string         `json:"thumbnail"`
	Duration     float64        `json:"duration"`
	VideoFormats []FormatOption `json:"video_formats"`
	AudioFormats []FormatOption `json:"audio_formats"`
}

// probeInfo mirrors the slice of `yt-dlp -J` output we consume.
type probeInfo struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
	Formats   []struct {
		FormatID       string  `json:"format_id"`
		Ext            string  `json:"ext"`
		Height         int     `json:"height"`
		Vcodec         string  `json:"vcodec"`
		Acodec         string  `json:"acodec"`
		Abr            float64 `json:"abr"`
		Filesize       int64   `json:"filesize"`
		FilesizeApprox int64   `json:"filesize_approx"`
	} `json:"formats"`
}

// Probe asks yt-dlp for the available formats of source without downloading
// anything, and condenses them to one option per quality tier.
func (f *Fetcher) Probe(ctx context.Context, source string) (*Listing, error) {
	cmd := exec.CommandContext(ctx, f.binaryPath, "-J", "--no-warnings", "--no-check-certificate", source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %w: %s", err, tail(stderr.String()))
	}

	var info probeInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to decode probe output: %w", err)
	}

	return buildListing(info), nil
}

// buildListing condenses raw format entries into per-quality video options
// and a single best-audio option.
//
// Video-only formats win over combined video+audio at the same tier: the
// video-only streams are usually higher quality, and the engine merges in
// bestaudio at fetch time.
func buildListing(info probeInfo) *Listing {
	listing := &Listing{
		Title:     info.Title,
		Thumbnail: info.Thumbnail,
		Duration:  info.Duration,
	}
	if listing.Title == "" {
		listing.Title = "Unknown"
	}

	combined := make(map[string]FormatOption)
	videoOnly := make(map[string]FormatOption)
	var bestAudio *FormatOption

	for _, raw := range info.Formats {
		size := raw.Filesize
		if size == 0 {
			size = raw.FilesizeApprox
		}

		hasVideo := raw.Vcodec != "" && raw.Vcodec != "none"
		hasAudio := raw.Acodec != "" && raw.Acodec != "none"

		if hasAudio && !hasVideo {
			if bestAudio == nil || raw.Abr > bestAudio.Abr {
				ext := strings.ToLower(raw.Ext)
				switch ext {
				case "webm", "opus", "m4a":
				default:
					ext = "webm"
				}
				bestAudio = &FormatOption{
					FormatID: raw.FormatID,
					Quality:  "Best Quality",
					Ext:      ext,
					Filesize: size,
					Abr:      raw.Abr,
				}
			}
			continue
		}

		if !hasVideo || raw.Height <= 0 {
			continue
		}

		label := qualityLabel(raw.Height)
		option := FormatOption{
			FormatID:   raw.FormatID,
			Quality:    label,
			Resolution: fmt.Sprintf("%dp", raw.Height),
			Ext:        raw.Ext,
			Filesize:   size,
			height:     raw.Height,
		}

		if hasAudio {
			if _, seen := combined[label]; !seen {
				combined[label] = option
			}
		} else {
			option.FormatID = raw.FormatID + "+bestaudio"
			option.Ext = "mp4"
			if _, seen := videoOnly[label]; !seen {
				videoOnly[label] = option
			}
		}
	}

	merged := make(map[string]FormatOption, len(videoOnly)+len(combined))
	for label, option := range videoOnly {
		merged[label] = option
	}
	for label, option := range combined {
		if _, seen := merged[label]; !seen {
			merged[label] = option
		}
	}

	for _, option := range merged {
		listing.VideoFormats = append(listing.VideoFormats, option)
	}
	sort.Slice(listing.VideoFormats, func(i, j int) bool {
		return listing.VideoFormats[i].height > listing.VideoFormats[j].height
	})

	if bestAudio != nil {
		listing.AudioFormats = append(listing.AudioFormats, *bestAudio)
	} else {
		listing.AudioFormats = []FormatOption{
			{FormatID: "bestaudio", Quality: "Best Quality", Ext: "webm"},
		}
	}

	if len(listing.VideoFormats) == 0 {
		listing.VideoFormats = []FormatOption{
			{FormatID: "bestvideo+bestaudio/best", Quality: "Best Available", Resolution: "Auto", Ext: "mp4"},
		}
	}

	return listing
}

// qualityLabel maps a pixel height to the label clients show.
func qualityLabel(height int) string {
	switch {
	case height >= 4320:
		return "8K"
	case height >= 2160:
		return "4K"
	case height >= 1440:
		return "2K"
	case height >= 1080:
		return "1080p"
	case height >= 720:
		return "720p"
	case height >= 480:
		return "480p"
	case height >= 360:
		return "360p"
	case height >= 240:
		return "240p"
	case height >= 144:
		return "144p"
	default:
		return fmt.Sprintf("%dp", height)
	}
}

// ThumbnailURL derives a thumbnail URL for YouTube sources. Non-YouTube
// sources, and URLs it cannot parse, report an empty string.
func ThumbnailURL(source string) string {
	parsed, err := url.Parse(source)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}

	host := parsed.Hostname()
	if !strings.Contains(host, "youtu") {
		return ""
	}

	var videoID string
	if strings.Contains(host, "youtu.be") {
		videoID = strings.TrimPrefix(parsed.Path, "/")
	} else {
		videoID = parsed.Query().Get("v")
	}

	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", videoID)
}
