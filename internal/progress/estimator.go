package progress

import (
	"sort"

	"msd/internal/models"
)

// Baselines are the static per-type average item sizes used to split
// measured growth into estimated item counts.
type Baselines struct {
	AvgItemSize map[models.MediaType]int64
}

// Report is the estimator output. PercentComplete is 0-100. Forced marks the
// final-day override so callers can tell declared completion from measured
// completion. Clamped marks a negative-growth measurement that was replaced
// by the last non-negative reading.
type Report struct {
	MigrationID     string                   `json:"migration_id"`
	DayIndex        int                      `json:"day_index"`
	GrowthBytes     int64                    `json:"growth_bytes"`
	PercentComplete float64                  `json:"percent_complete"`
	EstimatedCounts map[models.MediaType]int `json:"estimated_counts"`
	RateBytesPerDay float64                  `json:"rate_bytes_per_day,omitempty"`
	RateKnown       bool                     `json:"rate_known"`
	ETADays         float64                  `json:"eta_days,omitempty"`
	ETAKnown        bool                     `json:"eta_known"`
	Forced          bool                     `json:"forced"`
	Clamped         bool                     `json:"clamped"`
	LowConfidence   bool                     `json:"low_confidence"`
}

// Estimate converts the snapshot history into item-level and percentage
// progress for dayIndex. Pure computation: identical inputs always produce
// an identical report and nothing is mutated.
//
// Size growth, not reported item counts, drives the percentage: destination
// re-encoding makes counts an unreliable proxy, while storage growth
// survives it.
func Estimate(rec models.MigrationRecord, snapshots []models.StorageSnapshot, base Baselines, dayIndex, finalDay int) Report {
	r := Report{
		MigrationID:     rec.ID,
		DayIndex:        dayIndex,
		EstimatedCounts: make(map[models.MediaType]int, len(rec.Counts)),
	}

	baselineSize, hasBaseline := baselineOf(snapshots)
	if !hasBaseline {
		baselineSize = rec.BaselineSizeBytes
	}

	days, latest := latestPerDay(snapshots, dayIndex)

	growth, clamped := currentGrowth(days, latest, baselineSize)
	r.GrowthBytes = growth
	r.Clamped = clamped

	switch {
	case rec.TotalSizeBytes <= 0:
		r.PercentComplete = 100
	default:
		frac := float64(growth) / float64(rec.TotalSizeBytes)
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		r.PercentComplete = frac * 100
	}

	estimateCounts(&r, rec, base, growth)

	if len(days) >= 2 {
		d1, d2 := days[len(days)-2], days[len(days)-1]
		g1 := latest[d1].DestinationSizeBytes - baselineSize
		g2 := latest[d2].DestinationSizeBytes - baselineSize
		r.RateBytesPerDay = float64(g2-g1) / float64(d2-d1)
		r.RateKnown = true
		if r.RateBytesPerDay > 0 {
			remaining := rec.TotalSizeBytes - growth
			if remaining < 0 {
				remaining = 0
			}
			r.ETADays = float64(remaining) / r.RateBytesPerDay
			r.ETAKnown = true
		}
	}

	// Scheduled completion: on the final day the report declares success
	// whatever the measurements say, and says so via Forced.
	if finalDay > 0 && dayIndex >= finalDay {
		r.PercentComplete = 100
		for mt, total := range rec.Counts {
			r.EstimatedCounts[mt] = total
		}
		r.Forced = true
	}

	r.LowConfidence = len(snapshots) < 2 || !hasBaseline || clamped
	return r
}

func baselineOf(snapshots []models.StorageSnapshot) (int64, bool) {
	for _, s := range snapshots {
		if s.IsBaseline {
			return s.DestinationSizeBytes, true
		}
	}
	return 0, false
}

// latestPerDay reduces the append-only log to the last reading of each day
// up to dayIndex, returning the days in ascending order.
func latestPerDay(snapshots []models.StorageSnapshot, dayIndex int) ([]int, map[int]models.StorageSnapshot) {
	latest := make(map[int]models.StorageSnapshot)
	for _, s := range snapshots {
		if s.DayIndex > dayIndex {
			continue
		}
		latest[s.DayIndex] = s
	}
	days := make([]int, 0, len(latest))
	for d := range latest {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, latest
}

// currentGrowth reads the most recent day's growth, falling back to the last
// non-negative reading when measurement noise drives it negative.
func currentGrowth(days []int, latest map[int]models.StorageSnapshot, baselineSize int64) (int64, bool) {
	for i := len(days) - 1; i >= 0; i-- {
		growth := latest[days[i]].DestinationSizeBytes - baselineSize
		if growth >= 0 {
			return growth, i != len(days)-1
		}
	}
	return 0, len(days) > 0
}

// estimateCounts splits growth across media types by each type's share of
// the total size, capped at the declared totals.
func estimateCounts(r *Report, rec models.MigrationRecord, base Baselines, growth int64) {
	totalCount := 0
	for _, n := range rec.Counts {
		totalCount += n
	}

	avg := func(mt models.MediaType) int64 {
		if a := base.AvgItemSize[mt]; a > 0 {
			return a
		}
		if totalCount > 0 && rec.TotalSizeBytes > 0 {
			return rec.TotalSizeBytes / int64(totalCount)
		}
		return 0
	}

	var typedTotal int64
	for mt, count := range rec.Counts {
		typedTotal += int64(count) * avg(mt)
	}

	for mt, count := range rec.Counts {
		a := avg(mt)
		if a <= 0 || typedTotal <= 0 {
			r.EstimatedCounts[mt] = 0
			continue
		}
		share := float64(int64(count)*a) / float64(typedTotal)
		est := int(float64(growth) * share / float64(a))
		if est > count {
			est = count
		}
		if est < 0 {
			est = 0
		}
		r.EstimatedCounts[mt] = est
	}
}
