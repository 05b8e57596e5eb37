package services

import (
	"fmt"
	"time"

	"go.uber.org/atomic"

	"msd/internal/models"
	"msd/internal/progress"
	"msd/internal/structures"
)

// CreateMigrationInput carries the pre-transfer facts reported by the
// source-side status collaborator.
type CreateMigrationInput struct {
	PhotoCount        int    `json:"photo_count"`
	VideoCount        int    `json:"video_count"`
	AlbumCount        int    `json:"album_count"`
	TotalSizeBytes    int64  `json:"total_size_bytes"`
	BaselineSizeBytes int64  `json:"baseline_size_bytes"`
	TransferID        string `json:"transfer_id,omitempty"`
}

type MigrationServiceInterface interface {
	CreateMigration(in CreateMigrationInput) (models.MigrationRecord, error)
	Transition(id string, target models.Phase) (models.MigrationRecord, error)
	RecordSnapshot(id string, sizeBytes int64, dayIndex int, isBaseline bool) (models.StorageSnapshot, error)
	UpdateTrack(id string, mt models.MediaType, count int, size int64, status models.TrackStatus, dayIndex int) (models.TransferTrack, error)
	Complete(id string) (models.MigrationRecord, error)
	AttachTransfer(id, transferID string) error

	PutPerson(p models.Person)
	RecordAdoptionEvent(personID string, cap models.Capability, state models.AdoptionState) (models.AdoptionStatus, error)

	Migration(id string) (models.MigrationRecord, error)
	ActiveMigration() (models.MigrationRecord, bool)
	Tracks(id string) (map[models.MediaType]models.TransferTrack, error)
	Snapshots(id string) ([]models.StorageSnapshot, error)
	Progress(id string, dayIndex int) (progress.Report, error)
	People() []models.Person
	PendingFor(cap models.Capability) []models.Person
	AdoptionMatrix() map[string]map[models.Capability]models.AdoptionState

	Milestone(id string, day int) (models.DayMilestone, bool, error)
	PutMilestone(id string, m models.DayMilestone, overwrite bool) (models.DayMilestone, error)

	FinalDay() int
	RejectedWrites() int64
	MigrationCount() int

	GetSnapshot() models.StorageV2
	PutData(data models.StorageV2)
}

// MigrationService is the write side of the core: it owns all record
// mutation and the cross-entity validation the stores deliberately skip.
type MigrationService struct {
	config    *structures.Config
	store     *models.MigrationStore
	adoption  *models.AdoptionStore
	baselines progress.Baselines
	rejected  atomic.Int64
}

func NewMigrationService(conf *structures.Config) MigrationServiceInterface {
	return &MigrationService{
		config:   conf,
		store:    models.NewMigrationStore(),
		adoption: models.NewAdoptionStore(),
		baselines: progress.Baselines{AvgItemSize: map[models.MediaType]int64{
			models.MediaPhoto: conf.Migration.AvgPhotoBytes,
			models.MediaVideo: conf.Migration.AvgVideoBytes,
		}},
	}
}

func (ms *MigrationService) CreateMigration(in CreateMigrationInput) (models.MigrationRecord, error) {
	now := time.Now().UTC()
	rec := models.MigrationRecord{
		ID:         models.NewMigrationID(now),
		TransferID: in.TransferID,
		Counts: map[models.MediaType]int{
			models.MediaPhoto: in.PhotoCount,
			models.MediaVideo: in.VideoCount,
		},
		AlbumCount:        in.AlbumCount,
		TotalSizeBytes:    in.TotalSizeBytes,
		BaselineSizeBytes: in.BaselineSizeBytes,
		Phase:             models.PhaseInitialized,
		CreatedAt:         now,
	}
	created, err := ms.store.Create(rec)
	if err != nil {
		ms.rejected.Inc()
		return models.MigrationRecord{}, err
	}
	return created, nil
}

func (ms *MigrationService) Transition(id string, target models.Phase) (models.MigrationRecord, error) {
	rec, err := ms.store.Transition(id, target)
	if err != nil {
		ms.rejected.Inc()
	}
	return rec, err
}

// RecordSnapshot validates the measurement against the declared total before
// appending: growth beyond total by more than the configured tolerance means
// a unit or baseline mismatch upstream, not progress.
func (ms *MigrationService) RecordSnapshot(id string, sizeBytes int64, dayIndex int, isBaseline bool) (models.StorageSnapshot, error) {
	rec, err := ms.store.Record(id)
	if err != nil {
		return models.StorageSnapshot{}, err
	}
	growth := sizeBytes - rec.BaselineSizeBytes
	limit := float64(rec.TotalSizeBytes) * (1 + ms.config.Migration.DivergenceTolerance)
	if rec.TotalSizeBytes > 0 && float64(growth) > limit {
		ms.rejected.Inc()
		return models.StorageSnapshot{}, fmt.Errorf("%w: growth %d against total %d", models.ErrDivergentSnapshot, growth, rec.TotalSizeBytes)
	}
	snap := models.StorageSnapshot{
		MeasuredAt:           time.Now().UTC(),
		DestinationSizeBytes: sizeBytes,
		DayIndex:             dayIndex,
		IsBaseline:           isBaseline,
	}
	stored, err := ms.store.AppendSnapshot(id, snap)
	if err != nil {
		ms.rejected.Inc()
	}
	return stored, err
}

func (ms *MigrationService) UpdateTrack(id string, mt models.MediaType, count int, size int64, status models.TrackStatus, dayIndex int) (models.TransferTrack, error) {
	track, err := ms.store.UpdateTrack(id, mt, count, size, status, dayIndex)
	if err != nil {
		ms.rejected.Inc()
	}
	return track, err
}

func (ms *MigrationService) Complete(id string) (models.MigrationRecord, error) {
	return ms.store.Complete(id)
}

func (ms *MigrationService) AttachTransfer(id, transferID string) error {
	return ms.store.SetTransferID(id, transferID)
}

func (ms *MigrationService) PutPerson(p models.Person) {
	ms.adoption.PutPerson(p)
}

// RecordAdoptionEvent checks the person exists before touching the tracker.
// The stores do not enforce this relation; the service does.
func (ms *MigrationService) RecordAdoptionEvent(personID string, cap models.Capability, state models.AdoptionState) (models.AdoptionStatus, error) {
	if _, ok := ms.adoption.Person(personID); !ok {
		ms.rejected.Inc()
		return models.AdoptionStatus{}, fmt.Errorf("%w: %s", models.ErrUnknownPerson, personID)
	}
	status, err := ms.adoption.RecordEvent(personID, cap, state)
	if err != nil {
		ms.rejected.Inc()
	}
	return status, err
}

func (ms *MigrationService) Migration(id string) (models.MigrationRecord, error) {
	return ms.store.Record(id)
}

func (ms *MigrationService) ActiveMigration() (models.MigrationRecord, bool) {
	return ms.store.Active()
}

func (ms *MigrationService) Tracks(id string) (map[models.MediaType]models.TransferTrack, error) {
	return ms.store.Tracks(id)
}

func (ms *MigrationService) Snapshots(id string) ([]models.StorageSnapshot, error) {
	return ms.store.Snapshots(id)
}

// Progress runs the pure estimator over the accumulated snapshot history.
// It never blocks writers; inputs are deep copies.
func (ms *MigrationService) Progress(id string, dayIndex int) (progress.Report, error) {
	rec, err := ms.store.Record(id)
	if err != nil {
		return progress.Report{}, err
	}
	snaps, err := ms.store.Snapshots(id)
	if err != nil {
		return progress.Report{}, err
	}
	return progress.Estimate(rec, snaps, ms.baselines, dayIndex, ms.config.Migration.FinalDay), nil
}

func (ms *MigrationService) People() []models.Person {
	return ms.adoption.People()
}

func (ms *MigrationService) PendingFor(cap models.Capability) []models.Person {
	return ms.adoption.PendingFor(cap)
}

func (ms *MigrationService) AdoptionMatrix() map[string]map[models.Capability]models.AdoptionState {
	return ms.adoption.Matrix()
}

func (ms *MigrationService) Milestone(id string, day int) (models.DayMilestone, bool, error) {
	return ms.store.Milestone(id, day)
}

func (ms *MigrationService) PutMilestone(id string, m models.DayMilestone, overwrite bool) (models.DayMilestone, error) {
	return ms.store.PutMilestone(id, m, overwrite)
}

func (ms *MigrationService) FinalDay() int {
	return ms.config.Migration.FinalDay
}

func (ms *MigrationService) RejectedWrites() int64 {
	return ms.rejected.Load()
}

func (ms *MigrationService) MigrationCount() int {
	return ms.store.Len()
}

func (ms *MigrationService) GetSnapshot() models.StorageV2 {
	people, statuses := ms.adoption.GetData()
	return models.StorageV2{
		Version:    2,
		Migrations: ms.store.GetData(),
		Adoption:   models.AdoptionData{People: people, Statuses: statuses},
	}
}

func (ms *MigrationService) PutData(data models.StorageV2) {
	ms.store.PutData(data.Migrations)
	ms.adoption.PutData(data.Adoption.People, data.Adoption.Statuses)
}
