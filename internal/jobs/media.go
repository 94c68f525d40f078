package jobs

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/models"
	"github.com/hydrusband/fetchd/internal/progress"
)

// runMedia is the media job worker body. It emits started, translates engine
// ticks into downloading/finished_file events, and ends with exactly one
// terminal event mirrored in the returned outcome.
func (m *Manager) runMedia(id, source string, mode engine.Mode, formatSelector string, token *Token) outcome {
	channel := id
	m.relay.Publish(channel, progress.Started{})

	if token.Cancelled() {
		m.relay.Publish(channel, progress.Cancelled{})
		return outcome{status: models.StatusCancelled}
	}

	req := engine.Request{
		Source:         source,
		OutputDir:      m.downloadDir,
		Mode:           mode,
		FormatSelector: formatSelector,
	}

	hook := func(tick engine.Tick) engine.Signal {
		if token.Cancelled() {
			return engine.Abort
		}
		if tick.FileComplete {
			m.relay.Publish(channel, progress.FinishedFile{})
		} else {
			m.relay.Publish(channel, progress.Downloading{
				BytesDone:  tick.BytesDone,
				BytesTotal: tick.BytesTotal,
				Rate:       tick.Rate,
				ETA:        tick.ETA,
			})
		}
		return engine.Proceed
	}

	result, err := m.media.Fetch(context.Background(), req, hook)
	switch {
	case errors.Is(err, engine.ErrAborted):
		m.relay.Publish(channel, progress.Cancelled{})
		return outcome{status: models.StatusCancelled}
	case err != nil:
		m.logger.Error("media job failed", "id", id, "error", err)
		m.relay.Publish(channel, progress.Error{Message: err.Error()})
		return outcome{status: models.StatusError, meta: err.Error()}
	}

	filename := mediaFilename(result, mode)
	m.relay.Publish(channel, progress.Finished{
		Result: progress.Result{FinalPath: filepath.Join(m.downloadDir, filename)},
	})
	return outcome{status: models.StatusFinished, filename: filename}
}

// mediaFilename derives the output filename from the engine result, falling
// back to generic defaults when the engine reported incomplete metadata.
func mediaFilename(result *engine.Result, mode engine.Mode) string {
	title := "video"
	ext := "mp4"
	if mode == engine.ModeAudio {
		ext = "mp3"
	}

	if result != nil {
		if result.Title != "" {
			title = result.Title
		}
		if result.Ext != "" {
			ext = result.Ext
		}
	}
	return title + "." + ext
}
