package services

import (
	"fmt"
	"math"
	"time"

	"msd/internal/models"
)

// Overview is the single-call status view for the orchestrating caller.
type Overview struct {
	MigrationID     string       `json:"migration_id"`
	Phase           models.Phase `json:"phase"`
	DaysElapsed     int          `json:"days_elapsed"`
	PercentComplete float64      `json:"percent_complete"`
	Forced          bool         `json:"forced"`
	LowConfidence   bool         `json:"low_confidence"`
	PendingPeople   []string     `json:"pending_people"`
	PendingApps     []string     `json:"pending_apps"`
}

// PendingItem is one outstanding piece of work. Transfers always sort before
// adoption items.
type PendingItem struct {
	Kind        string            `json:"kind"`
	Description string            `json:"description"`
	MediaType   models.MediaType  `json:"media_type,omitempty"`
	PersonID    string            `json:"person_id,omitempty"`
	Capability  models.Capability `json:"capability,omitempty"`
}

const (
	PendingTransfer = "transfer"
	PendingAdoption = "adoption"
)

type ReportServiceInterface interface {
	Overview() (Overview, error)
	DailySummary(day int) (models.DayMilestone, error)
	PendingItems() ([]PendingItem, error)
	AdoptionMatrix() map[string]map[models.Capability]models.AdoptionState
	CloseCurrentDay() (models.DayMilestone, error)
}

// ReportService is the read-only composition layer over the migration and
// adoption state. It writes nothing except day milestones.
type ReportService struct {
	service MigrationServiceInterface
}

func NewReportService(service MigrationServiceInterface) ReportServiceInterface {
	return &ReportService{service: service}
}

func (rs *ReportService) Overview() (Overview, error) {
	rec, ok := rs.service.ActiveMigration()
	if !ok {
		return Overview{}, models.ErrUnknownMigration
	}
	day := dayIndexOf(rec)
	report, err := rs.service.Progress(rec.ID, day)
	if err != nil {
		return Overview{}, err
	}

	matrix := rs.service.AdoptionMatrix()
	pendingPeople := make([]string, 0, len(matrix))
	pendingApps := make([]string, 0, len(models.AllCapabilities))
	appPending := make(map[models.Capability]bool, len(models.AllCapabilities))
	for _, p := range rs.service.People() {
		row := matrix[p.ID]
		done := true
		for _, cap := range models.AllCapabilities {
			if row[cap] != models.AdoptionConfigured {
				done = false
				appPending[cap] = true
			}
		}
		if !done {
			pendingPeople = append(pendingPeople, p.DisplayName)
		}
	}
	for _, cap := range models.AllCapabilities {
		if appPending[cap] {
			pendingApps = append(pendingApps, string(cap))
		}
	}

	return Overview{
		MigrationID:     rec.ID,
		Phase:           rec.Phase,
		DaysElapsed:     day,
		PercentComplete: report.PercentComplete,
		Forced:          report.Forced,
		LowConfidence:   report.LowConfidence,
		PendingPeople:   pendingPeople,
		PendingApps:     pendingApps,
	}, nil
}

// DailySummary materializes the milestone for a day on first request and
// returns the stored value verbatim afterwards. Only the final day may be
// rewritten, by its completion figures.
func (rs *ReportService) DailySummary(day int) (models.DayMilestone, error) {
	rec, ok := rs.service.ActiveMigration()
	if !ok {
		return models.DayMilestone{}, models.ErrUnknownMigration
	}
	report, err := rs.service.Progress(rec.ID, day)
	if err != nil {
		return models.DayMilestone{}, err
	}

	if existing, ok, err := rs.service.Milestone(rec.ID, day); err != nil {
		return models.DayMilestone{}, err
	} else if ok && !report.Forced {
		return existing, nil
	}

	photos := report.EstimatedCounts[models.MediaPhoto]
	videos := report.EstimatedCounts[models.MediaVideo]
	pct := math.Round(report.PercentComplete)
	headline := fmt.Sprintf("Day %d: %.0f%% of your library is on the new phone (%d photos, %d videos)", day, pct, photos, videos)
	if report.Forced {
		headline = fmt.Sprintf("Day %d: transfer complete, %d photos and %d videos on your new phone", day, photos, videos)
	}

	m := models.DayMilestone{
		DayIndex:          day,
		Headline:          headline,
		PhotosTransferred: photos,
		VideosTransferred: videos,
		PercentComplete:   pct,
		ClosedAt:          time.Now().UTC(),
	}
	return rs.service.PutMilestone(rec.ID, m, report.Forced)
}

// PendingItems lists outstanding work: incomplete transfers first, then
// adoption items, both in fixed order.
func (rs *ReportService) PendingItems() ([]PendingItem, error) {
	rec, ok := rs.service.ActiveMigration()
	if !ok {
		return nil, models.ErrUnknownMigration
	}
	tracks, err := rs.service.Tracks(rec.ID)
	if err != nil {
		return nil, err
	}

	items := make([]PendingItem, 0)
	for _, mt := range []models.MediaType{models.MediaPhoto, models.MediaVideo} {
		track, ok := tracks[mt]
		if !ok || track.Status == models.TrackComplete {
			continue
		}
		items = append(items, PendingItem{
			Kind:        PendingTransfer,
			Description: fmt.Sprintf("%s transfer %s (%d of %d)", mt, track.Status, track.TransferredCount, rec.Counts[mt]),
			MediaType:   mt,
		})
	}

	matrix := rs.service.AdoptionMatrix()
	for _, p := range rs.service.People() {
		row := matrix[p.ID]
		for _, cap := range models.AllCapabilities {
			if row[cap] == models.AdoptionConfigured {
				continue
			}
			items = append(items, PendingItem{
				Kind:        PendingAdoption,
				Description: fmt.Sprintf("%s: %s is %s", p.DisplayName, cap, row[cap]),
				PersonID:    p.ID,
				Capability:  cap,
			})
		}
	}
	return items, nil
}

func (rs *ReportService) AdoptionMatrix() map[string]map[models.Capability]models.AdoptionState {
	return rs.service.AdoptionMatrix()
}

// CloseCurrentDay is the scheduler hook that persists the current day's
// milestone without waiting for a caller to ask for it.
func (rs *ReportService) CloseCurrentDay() (models.DayMilestone, error) {
	rec, ok := rs.service.ActiveMigration()
	if !ok {
		return models.DayMilestone{}, models.ErrUnknownMigration
	}
	return rs.DailySummary(dayIndexOf(rec))
}

// dayIndexOf derives the 1-based logical day from the record age.
func dayIndexOf(rec models.MigrationRecord) int {
	return int(time.Now().UTC().Sub(rec.CreatedAt).Hours()/24) + 1
}
