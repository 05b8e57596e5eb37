package controllers

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"msd/internal/models"
	"msd/internal/providers"
	"msd/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.MigrationServiceInterface
	reports services.ReportServiceInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.MigrationServiceInterface, reports services.ReportServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		reports: reports,
		cache:   cache,
	}
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeJSON(w http.ResponseWriter, status int, result any) {
	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError maps the core's validation failures onto HTTP statuses. All of
// them are caller mistakes or lost races, not server faults.
func (ac *ApiController) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, models.ErrUnknownMigration), errors.Is(err, models.ErrUnknownPerson):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateActiveMigration),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrRegressionRejected),
		errors.Is(err, models.ErrBaselineAlreadySet):
		status = http.StatusConflict
	case errors.Is(err, models.ErrDivergentSnapshot):
		status = http.StatusUnprocessableEntity
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ac.logger.Warnf(providers.TypePost, "Rejected: %s", err)
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func (ac *ApiController) CreateMigration(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateMigrationInput
	if !decode(w, r, &payload) {
		return
	}
	rec, err := ac.service.CreateMigration(payload)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.logger.Infof(providers.TypePost, "Created migration %s (%d photos, %d videos)", rec.ID, payload.PhotoCount, payload.VideoCount)
	ac.writeJSON(w, http.StatusCreated, rec)
}

func (ac *ApiController) Transition(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID    string       `json:"id"`
		Phase models.Phase `json:"phase"`
	}
	if !decode(w, r, &payload) {
		return
	}
	rec, err := ac.service.Transition(payload.ID, payload.Phase)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, rec)
}

func (ac *ApiController) ReceiveSnapshot(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID                   string `json:"id"`
		DestinationSizeBytes int64  `json:"destination_size_bytes"`
		DayIndex             int    `json:"day_index"`
		IsBaseline           bool   `json:"is_baseline"`
	}
	if !decode(w, r, &payload) {
		return
	}
	snap, err := ac.service.RecordSnapshot(payload.ID, payload.DestinationSizeBytes, payload.DayIndex, payload.IsBaseline)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusCreated, snap)
}

func (ac *ApiController) UpdateTrack(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID                   string             `json:"id"`
		MediaType            models.MediaType   `json:"media_type"`
		TransferredCount     int                `json:"transferred_count"`
		TransferredSizeBytes int64              `json:"transferred_size_bytes"`
		Status               models.TrackStatus `json:"status"`
		DayIndex             int                `json:"day_index"`
	}
	if !decode(w, r, &payload) {
		return
	}
	track, err := ac.service.UpdateTrack(payload.ID, payload.MediaType, payload.TransferredCount, payload.TransferredSizeBytes, payload.Status, payload.DayIndex)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, track)
}

func (ac *ApiController) Complete(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &payload) {
		return
	}
	rec, err := ac.service.Complete(payload.ID)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.logger.Infof(providers.TypePost, "Migration %s completed", rec.ID)
	ac.writeJSON(w, http.StatusOK, rec)
}

func (ac *ApiController) AttachTransfer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID         string `json:"id"`
		TransferID string `json:"transfer_id"`
	}
	if !decode(w, r, &payload) {
		return
	}
	if err := ac.service.AttachTransfer(payload.ID, payload.TransferID); err != nil {
		ac.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) PutPerson(w http.ResponseWriter, r *http.Request) {
	var payload models.Person
	if !decode(w, r, &payload) {
		return
	}
	if payload.ID == "" || payload.DisplayName == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.PutPerson(payload)
	ac.writeJSON(w, http.StatusCreated, payload)
}

func (ac *ApiController) ReceiveAdoptionEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonID   string               `json:"person_id"`
		Capability models.Capability    `json:"capability"`
		State      models.AdoptionState `json:"state"`
	}
	if !decode(w, r, &payload) {
		return
	}
	status, err := ac.service.RecordAdoptionEvent(payload.PersonID, payload.Capability, payload.State)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, status)
}

func (ac *ApiController) GetOverview(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "overview", func() (any, error) {
		return ac.reports.Overview()
	})
}

func (ac *ApiController) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	day := cast.ToInt(r.URL.Query().Get("day"))
	if day <= 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.serveFromCacheOrCompute(w, "daily:"+r.URL.Query().Get("day"), func() (any, error) {
		return ac.reports.DailySummary(day)
	})
}

func (ac *ApiController) GetPendingItems(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "pending", func() (any, error) {
		return ac.reports.PendingItems()
	})
}

func (ac *ApiController) GetAdoptionMatrix(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "matrix", func() (any, error) {
		return ac.reports.AdoptionMatrix(), nil
	})
}

func (ac *ApiController) GetMigration(w http.ResponseWriter, r *http.Request) {
	rec, ok := ac.service.ActiveMigration()
	if !ok {
		ac.writeError(w, models.ErrUnknownMigration)
		return
	}
	tracks, err := ac.service.Tracks(rec.ID)
	if err != nil {
		ac.writeError(w, err)
		return
	}
	ac.writeJSON(w, http.StatusOK, struct {
		Record models.MigrationRecord                    `json:"record"`
		Tracks map[models.MediaType]models.TransferTrack `json:"tracks"`
	}{Record: rec, Tracks: tracks})
}
