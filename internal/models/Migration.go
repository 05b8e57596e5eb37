package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseInitialized       Phase = "initialized"
	PhaseMediaTransferring Phase = "media_transferring"
	PhaseFamilySetup       Phase = "family_setup"
	PhaseValidating        Phase = "validating"
	PhaseCompleted         Phase = "completed"
)

// phaseRank fixes the forward-only phase order. Transitions may only move to
// the immediate next rank; Complete is the one operation allowed to jump.
var phaseRank = map[Phase]int{
	PhaseInitialized:       0,
	PhaseMediaTransferring: 1,
	PhaseFamilySetup:       2,
	PhaseValidating:        3,
	PhaseCompleted:         4,
}

func (p Phase) Rank() (int, bool) {
	r, ok := phaseRank[p]
	return r, ok
}

type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

type TrackStatus string

const (
	TrackNotStarted   TrackStatus = "not_started"
	TrackProcessing   TrackStatus = "processing"
	TrackTransferring TrackStatus = "transferring"
	TrackComplete     TrackStatus = "complete"
	TrackFailed       TrackStatus = "failed"
)

// trackRank orders the track lifecycle. complete and failed share the
// terminal rank so neither can replace the other.
var trackRank = map[TrackStatus]int{
	TrackNotStarted:   0,
	TrackProcessing:   1,
	TrackTransferring: 2,
	TrackComplete:     3,
	TrackFailed:       3,
}

func (s TrackStatus) Rank() (int, bool) {
	r, ok := trackRank[s]
	return r, ok
}

func (s TrackStatus) Terminal() bool {
	return s == TrackComplete || s == TrackFailed
}

// MigrationRecord is the top-level record for one end-to-end migration run.
// TotalSizeBytes is the source-side size still to transfer, measured before
// the run starts; BaselineSizeBytes is the destination size at the same
// moment and is the zero point for all growth computations.
type MigrationRecord struct {
	ID                string             `json:"id"`
	TransferID        string             `json:"transfer_id,omitempty"`
	Counts            map[MediaType]int  `json:"counts"`
	AlbumCount        int                `json:"album_count"`
	TotalSizeBytes    int64              `json:"total_size_bytes"`
	BaselineSizeBytes int64              `json:"baseline_size_bytes"`
	Phase             Phase              `json:"phase"`
	CreatedAt         time.Time          `json:"created_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
}

// NewMigrationID builds a time-derived, collision-resistant identifier.
func NewMigrationID(now time.Time) string {
	return fmt.Sprintf("m-%s-%s", now.UTC().Format("20060102"), uuid.NewString()[:8])
}

func (m *MigrationRecord) Active() bool {
	return m.Phase != PhaseCompleted
}

// TransferTrack follows one media type through the transfer. Counts and sizes
// are what collaborators report, not what the estimator infers.
type TransferTrack struct {
	MediaType            MediaType   `json:"media_type"`
	Status               TrackStatus `json:"status"`
	TransferredCount     int         `json:"transferred_count"`
	TransferredSizeBytes int64       `json:"transferred_size_bytes"`
	VisibleSinceDay      int         `json:"visible_since_day,omitempty"`
}

// StorageSnapshot is one absolute destination-size measurement. The snapshot
// log is append-only; only the latest snapshot per day feeds estimation.
type StorageSnapshot struct {
	MeasuredAt           time.Time `json:"measured_at"`
	DestinationSizeBytes int64     `json:"destination_size_bytes"`
	DayIndex             int       `json:"day_index"`
	IsBaseline           bool      `json:"is_baseline,omitempty"`
}

// DayMilestone is the denormalized once-per-day progress log entry. A closed
// day is never rewritten, except the final day's completion overwrite.
type DayMilestone struct {
	DayIndex          int       `json:"day_index"`
	Headline          string    `json:"headline"`
	PhotosTransferred int       `json:"photos_transferred"`
	VideosTransferred int       `json:"videos_transferred"`
	PercentComplete   float64   `json:"percent_complete"`
	ClosedAt          time.Time `json:"closed_at"`
}
