package jobs

import (
	"context"
	"time"

	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/models"
	"github.com/hydrusband/fetchd/internal/progress"
)

// runSwarm is the swarm job worker body: a polling state machine that moves
// from awaiting-metadata to transferring to complete. Cancellation is
// checked at every poll boundary, so worst-case cancellation latency is one
// poll interval.
func (m *Manager) runSwarm(id, locator string, token *Token) outcome {
	channel := SwarmChannel(id)
	m.relay.Publish(channel, progress.Started{})

	if token.Cancelled() {
		m.relay.Publish(channel, progress.Cancelled{})
		return outcome{status: models.StatusCancelled}
	}

	h, err := m.swarm.Add(context.Background(), locator, m.swarmDir)
	if err != nil {
		m.logger.Error("swarm job failed to start", "id", id, "error", err)
		m.relay.Publish(channel, progress.Error{Message: err.Error()})
		return outcome{status: models.StatusError, meta: err.Error()}
	}
	m.registry.setHandle(id, h)

	// Awaiting metadata: fast polls until the engine resolves the swarm's
	// metainfo. Tiny transfers may complete before metadata is observed.
	var meta engine.SwarmMeta
	for {
		if token.Cancelled() {
			return m.abortSwarm(channel, h, id)
		}

		var ok bool
		if meta, ok = h.Metadata(); ok {
			m.relay.Publish(channel, progress.Metadata{
				Name:      meta.Name,
				TotalSize: meta.TotalSize,
				FileCount: meta.FileCount,
			})
			break
		}
		if h.Complete() {
			break
		}
		time.Sleep(m.metaPollInterval)
	}

	// Transferring: coarse polls publishing one snapshot per interval.
	for !h.Complete() {
		if token.Cancelled() {
			return m.abortSwarm(channel, h, id)
		}

		stats := h.Stats()
		done := int64(stats.Progress * float64(meta.TotalSize))
		m.relay.Publish(channel, progress.SwarmProgress{
			Percent:       stats.Progress * 100,
			DownloadRate:  stats.DownloadRate,
			UploadRate:    stats.UploadRate,
			Peers:         stats.Peers,
			Seeds:         stats.Seeds,
			TotalDownload: stats.TotalDownload,
			TotalUpload:   stats.TotalUpload,
			ETA:           etaSeconds(meta.TotalSize-done, stats.DownloadRate),
		})

		time.Sleep(m.transferPollInterval)
	}

	m.relay.Publish(channel, progress.SwarmFinished{SavePath: h.SavePath()})
	return outcome{status: models.StatusFinished, filename: meta.Name}
}

// abortSwarm tears down a cancelled transfer and emits the terminal event.
func (m *Manager) abortSwarm(channel string, h engine.Handle, id string) outcome {
	if err := m.swarm.Remove(h); err != nil {
		m.logger.Warn("failed to remove swarm handle", "id", id, "error", err)
	}
	m.relay.Publish(channel, progress.Cancelled{})
	return outcome{status: models.StatusCancelled}
}

// etaSeconds computes remaining/rate, reporting 0 (never infinity or a
// division fault) when the rate is unknown or zero.
func etaSeconds(remaining, rate int64) int64 {
	if rate <= 0 || remaining <= 0 {
		return 0
	}
	return remaining / rate
}
