package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/hydrusband/fetchd/internal/engine"
	"github.com/hydrusband/fetchd/internal/engine/ytdlp"
	"github.com/hydrusband/fetchd/internal/models"
	"github.com/hydrusband/fetchd/internal/relay"
	"github.com/hydrusband/fetchd/internal/shared"
)

// Orchestrator is the slice of the job manager the handlers need.
type Orchestrator interface {
	StartJob(id, source, mode, formatSelector string) (string, error)
	AddSwarmJob(id, locator string) (string, error)
	CancelJob(id string) error
	SwarmStatus(id string) (engine.SwarmStats, error)
}

// HistoryStore is the slice of the history repository the handlers need.
type HistoryStore interface {
	List(limit int) ([]*models.HistoryRecord, error)
	Delete(id string) (bool, error)
}

// Prober resolves the available formats for a media source.
type Prober interface {
	Probe(ctx context.Context, source string) (*ytdlp.Listing, error)
}

// API bundles the JSON request handlers for the fetch service.
type API struct {
	manager Orchestrator
	history HistoryStore
	prober  Prober
	hub     *relay.Hub
	logger  *log.Logger
}

// NewAPI creates an API backed by the given collaborators.
func NewAPI(manager Orchestrator, history HistoryStore, prober Prober, hub *relay.Hub, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{manager: manager, history: history, prober: prober, hub: hub, logger: logger}
}

// Register wires every endpoint onto r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodPost, "/api/downloads", http.HandlerFunc(a.startDownload))
	r.Handle(http.MethodPost, "/api/downloads/cancel", http.HandlerFunc(a.cancelJob))
	r.Handle(http.MethodPost, "/api/swarm", http.HandlerFunc(a.addSwarm))
	r.Handle(http.MethodPost, "/api/swarm/cancel", http.HandlerFunc(a.cancelJob))
	r.Handle(http.MethodGet, "/api/swarm/{id}/status", http.HandlerFunc(a.swarmStatus))
	r.Handle(http.MethodGet, "/api/formats", http.HandlerFunc(a.formats))
	r.Handle(http.MethodGet, "/api/thumbnail", http.HandlerFunc(a.thumbnail))
	r.Handle(http.MethodGet, "/api/history", http.HandlerFunc(a.listHistory))
	r.Handle(http.MethodDelete, "/api/history/{id}", http.HandlerFunc(a.deleteHistory))
	r.Handle(http.MethodGet, "/ws/{channel}", http.HandlerFunc(a.subscribe))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(a.ping))
}

type startRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Mode   string `json:"mode"`
	Format string `json:"format"`
}

func (a *API) startDownload(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, shared.ErrInvalidInput)
		return
	}

	id, err := a.manager.StartJob(req.ID, req.Source, req.Mode, req.Format)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "started"})
}

type swarmRequest struct {
	ID      string `json:"id"`
	Locator string `json:"locator"`
}

func (a *API) addSwarm(w http.ResponseWriter, r *http.Request) {
	var req swarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, shared.ErrInvalidInput)
		return
	}

	id, err := a.manager.AddSwarmJob(req.ID, req.Locator)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "started"})
}

type cancelRequest struct {
	ID string `json:"id"`
}

// cancelJob serves both the media and swarm cancel endpoints; the registry
// is shared, so either route reaches the same token.
func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		a.writeError(w, shared.ErrMissingArgument)
		return
	}

	if err := a.manager.CancelJob(req.ID); err != nil {
		a.writeError(w, err)
		return
	}

	// Cancellation is asynchronous: this acknowledges the request only.
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "cancelling"})
}

func (a *API) swarmStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stats, err := a.manager.SwarmStatus(id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             id,
		"progress":       stats.Progress * 100,
		"download_rate":  stats.DownloadRate,
		"upload_rate":    stats.UploadRate,
		"num_peers":      stats.Peers,
		"num_seeds":      stats.Seeds,
		"total_download": stats.TotalDownload,
		"total_upload":   stats.TotalUpload,
		"state":          stats.State,
	})
}

func (a *API) formats(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("url")
	if source == "" {
		a.writeError(w, shared.ErrMissingSource)
		return
	}

	listing, err := a.prober.Probe(r.Context(), source)
	if err != nil {
		if engine.IsVerification(err) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "verification_required",
				"message": "The video platform requires human verification.",
			})
			return
		}
		a.logger.Error("format probe failed", "url", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "fetch_failed",
			"message": "Failed to fetch video information: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

func (a *API) thumbnail(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("url")
	if source == "" {
		a.writeError(w, shared.ErrMissingSource)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"thumbnail": ytdlp.ThumbnailURL(source)})
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			a.writeError(w, shared.ErrInvalidArgument)
			return
		}
		limit = parsed
	}

	records, err := a.history.List(limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if records == nil {
		records = []*models.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (a *API) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existed, err := a.history.Delete(id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": existed})
}

func (a *API) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the façade's error taxonomy onto HTTP status codes.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrMissingSource),
		errors.Is(err, shared.ErrMissingLocator),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, shared.ErrVerificationRequired):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
