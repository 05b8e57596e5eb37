package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord() MigrationRecord {
	return MigrationRecord{
		ID: NewMigrationID(time.Now()),
		Counts: map[MediaType]int{
			MediaPhoto: 3500,
			MediaVideo: 250,
		},
		TotalSizeBytes:    38300,
		BaselineSizeBytes: 1388,
		Phase:             PhaseInitialized,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestMigrationStore_CreateCapturesBaseline(t *testing.T) {
	s := NewMigrationStore()
	rec, err := s.Create(newTestRecord())
	require.NoError(t, err)

	snaps, err := s.Snapshots(rec.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].IsBaseline)
	assert.Equal(t, int64(1388), snaps[0].DestinationSizeBytes)
	assert.Equal(t, 1, snaps[0].DayIndex)
}

func TestMigrationStore_CreateInitializesTracks(t *testing.T) {
	s := NewMigrationStore()
	rec, err := s.Create(newTestRecord())
	require.NoError(t, err)

	tracks, err := s.Tracks(rec.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, TrackNotStarted, tracks[MediaPhoto].Status)
	assert.Zero(t, tracks[MediaPhoto].TransferredCount)
}

func TestMigrationStore_SecondActiveRejected(t *testing.T) {
	s := NewMigrationStore()
	_, err := s.Create(newTestRecord())
	require.NoError(t, err)

	_, err = s.Create(newTestRecord())
	assert.ErrorIs(t, err, ErrDuplicateActiveMigration)
	assert.Equal(t, 1, s.Len())
}

func TestMigrationStore_CreateAfterCompleteAllowed(t *testing.T) {
	s := NewMigrationStore()
	rec, err := s.Create(newTestRecord())
	require.NoError(t, err)
	_, err = s.Complete(rec.ID)
	require.NoError(t, err)

	_, err = s.Create(newTestRecord())
	assert.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestMigrationStore_TransitionForwardOnly(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	got, err := s.Transition(rec.ID, PhaseMediaTransferring)
	require.NoError(t, err)
	assert.Equal(t, PhaseMediaTransferring, got.Phase)

	// backward
	_, err = s.Transition(rec.ID, PhaseInitialized)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// skip ahead
	_, err = s.Transition(rec.ID, PhaseValidating)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// state unchanged after rejections
	cur, err := s.Record(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, PhaseMediaTransferring, cur.Phase)
}

func TestMigrationStore_TransitionUnknownPhase(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.Transition(rec.ID, Phase("paused"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMigrationStore_TransitionUnknownMigration(t *testing.T) {
	s := NewMigrationStore()
	_, err := s.Transition("missing", PhaseMediaTransferring)
	assert.ErrorIs(t, err, ErrUnknownMigration)
}

func TestMigrationStore_TransitionThroughAllPhases(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	for _, phase := range []Phase{PhaseMediaTransferring, PhaseFamilySetup, PhaseValidating, PhaseCompleted} {
		got, err := s.Transition(rec.ID, phase)
		require.NoError(t, err)
		assert.Equal(t, phase, got.Phase)
	}

	got, err := s.Record(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)

	_, err = s.Transition(rec.ID, PhaseCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMigrationStore_CompleteIdempotent(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	first, err := s.Complete(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	second, err := s.Complete(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Phase, second.Phase)
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt)
}

func TestMigrationStore_SecondBaselineRejected(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.AppendSnapshot(rec.ID, StorageSnapshot{DestinationSizeBytes: 2000, DayIndex: 2, IsBaseline: true})
	assert.ErrorIs(t, err, ErrBaselineAlreadySet)

	snaps, _ := s.Snapshots(rec.ID)
	assert.Len(t, snaps, 1)
}

func TestMigrationStore_SnapshotsAppendOnly(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	for day := 2; day <= 4; day++ {
		_, err := s.AppendSnapshot(rec.ID, StorageSnapshot{DestinationSizeBytes: int64(day) * 1000, DayIndex: day})
		require.NoError(t, err)
	}

	snaps, _ := s.Snapshots(rec.ID)
	assert.Len(t, snaps, 4)
}

func TestMigrationStore_UpdateTrack(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	track, err := s.UpdateTrack(rec.ID, MediaPhoto, 100, 600, TrackTransferring, 2)
	require.NoError(t, err)
	assert.Equal(t, 100, track.TransferredCount)
	assert.Equal(t, TrackTransferring, track.Status)
	assert.Equal(t, 2, track.VisibleSinceDay)
}

func TestMigrationStore_UpdateTrackRejectsCountDecrease(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.UpdateTrack(rec.ID, MediaPhoto, 100, 600, TrackTransferring, 2)
	require.NoError(t, err)

	_, err = s.UpdateTrack(rec.ID, MediaPhoto, 99, 600, TrackTransferring, 2)
	assert.ErrorIs(t, err, ErrRegressionRejected)

	tracks, _ := s.Tracks(rec.ID)
	assert.Equal(t, 100, tracks[MediaPhoto].TransferredCount)
}

func TestMigrationStore_UpdateTrackRejectsStatusRegression(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.UpdateTrack(rec.ID, MediaPhoto, 3500, 21000, TrackComplete, 3)
	require.NoError(t, err)

	_, err = s.UpdateTrack(rec.ID, MediaPhoto, 3500, 21000, TrackTransferring, 3)
	assert.ErrorIs(t, err, ErrRegressionRejected)

	_, err = s.UpdateTrack(rec.ID, MediaPhoto, 3500, 21000, TrackFailed, 3)
	assert.ErrorIs(t, err, ErrRegressionRejected)
}

func TestMigrationStore_UpdateTrackRejectsCountBeyondTotal(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.UpdateTrack(rec.ID, MediaVideo, 251, 100, TrackTransferring, 2)
	assert.ErrorIs(t, err, ErrRegressionRejected)
}

func TestMigrationStore_VisibleSinceSetOnce(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.UpdateTrack(rec.ID, MediaPhoto, 10, 60, TrackTransferring, 2)
	require.NoError(t, err)
	track, err := s.UpdateTrack(rec.ID, MediaPhoto, 20, 120, TrackTransferring, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, track.VisibleSinceDay)
}

func TestMigrationStore_ConcurrentTrackUpdatesStayMonotonic(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = s.UpdateTrack(rec.ID, MediaPhoto, n*10, int64(n)*60, TrackTransferring, 2)
		}(i)
	}
	wg.Wait()

	tracks, _ := s.Tracks(rec.ID)
	assert.Equal(t, 500, tracks[MediaPhoto].TransferredCount)
}

func TestMigrationStore_MilestoneWriteOnce(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	first, err := s.PutMilestone(rec.ID, DayMilestone{DayIndex: 2, Headline: "first", PercentComplete: 10}, false)
	require.NoError(t, err)

	second, err := s.PutMilestone(rec.ID, DayMilestone{DayIndex: 2, Headline: "second", PercentComplete: 20}, false)
	require.NoError(t, err)
	assert.Equal(t, "first", second.Headline)
	assert.Equal(t, first, second)
}

func TestMigrationStore_MilestoneFinalOverwrite(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	_, err := s.PutMilestone(rec.ID, DayMilestone{DayIndex: 7, Headline: "measured"}, false)
	require.NoError(t, err)

	final, err := s.PutMilestone(rec.ID, DayMilestone{DayIndex: 7, Headline: "complete"}, true)
	require.NoError(t, err)
	assert.Equal(t, "complete", final.Headline)
}

func TestMigrationStore_GetDataDeepCopy(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	data := s.GetData()
	data[rec.ID].Record.Counts[MediaPhoto] = 1
	data[rec.ID].Tracks[MediaPhoto].TransferredCount = 999

	got, _ := s.Record(rec.ID)
	assert.Equal(t, 3500, got.Counts[MediaPhoto])
	tracks, _ := s.Tracks(rec.ID)
	assert.Zero(t, tracks[MediaPhoto].TransferredCount)
}

func TestMigrationStore_PutDataNormalizesNilMaps(t *testing.T) {
	s := NewMigrationStore()
	rec := newTestRecord()
	s.PutData(map[string]*MigrationData{
		rec.ID: {Record: rec},
	})

	_, err := s.UpdateTrack(rec.ID, MediaPhoto, 1, 6, TrackProcessing, 1)
	assert.NoError(t, err)
	_, err = s.PutMilestone(rec.ID, DayMilestone{DayIndex: 1}, false)
	assert.NoError(t, err)
}

func TestMigrationStore_SetTransferID(t *testing.T) {
	s := NewMigrationStore()
	rec, _ := s.Create(newTestRecord())

	require.NoError(t, s.SetTransferID(rec.ID, "tx-4711"))
	got, _ := s.Record(rec.ID)
	assert.Equal(t, "tx-4711", got.TransferID)

	assert.ErrorIs(t, s.SetTransferID("missing", "tx"), ErrUnknownMigration)
}
