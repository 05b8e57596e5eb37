package models

import (
	"sync"
	"time"
)

// MigrationData groups everything the store keeps for one migration id.
// The store does not enforce referential integrity between migrations and
// people; cross-entity checks belong to the services layer.
type MigrationData struct {
	Record     MigrationRecord              `json:"record"`
	Tracks     map[MediaType]*TransferTrack `json:"tracks"`
	Snapshots  []StorageSnapshot            `json:"snapshots"`
	Milestones map[int]*DayMilestone        `json:"milestones"`
}

// MigrationStore holds all migration state behind a single lock so every
// check-then-write operation commits against the latest state. Reads hand
// out deep copies and never block concurrent readers.
type MigrationStore struct {
	mu      sync.RWMutex
	entries map[string]*MigrationData
}

func NewMigrationStore() *MigrationStore {
	return &MigrationStore{
		entries: make(map[string]*MigrationData),
	}
}

// Create inserts a new record and captures its baseline snapshot in the same
// atomic step. At most one non-completed record may exist at a time.
func (s *MigrationStore) Create(rec MigrationRecord) (MigrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Record.Active() {
			return MigrationRecord{}, ErrDuplicateActiveMigration
		}
	}

	tracks := make(map[MediaType]*TransferTrack, len(rec.Counts))
	for mt := range rec.Counts {
		tracks[mt] = &TransferTrack{MediaType: mt, Status: TrackNotStarted}
	}

	entry := &MigrationData{
		Record: copyRecord(rec),
		Tracks: tracks,
		Snapshots: []StorageSnapshot{{
			MeasuredAt:           rec.CreatedAt,
			DestinationSizeBytes: rec.BaselineSizeBytes,
			DayIndex:             1,
			IsBaseline:           true,
		}},
		Milestones: make(map[int]*DayMilestone),
	}
	s.entries[rec.ID] = entry

	return copyRecord(entry.Record), nil
}

func (s *MigrationStore) Record(id string) (MigrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return MigrationRecord{}, ErrUnknownMigration
	}
	return copyRecord(e.Record), nil
}

// Active returns the current non-completed record, if any.
func (s *MigrationStore) Active() (MigrationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Record.Active() {
			return copyRecord(e.Record), true
		}
	}
	return MigrationRecord{}, false
}

// Transition moves the phase exactly one step forward. Completed records are
// terminal and skipping phases is rejected.
func (s *MigrationStore) Transition(id string, target Phase) (MigrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return MigrationRecord{}, ErrUnknownMigration
	}
	cur, _ := e.Record.Phase.Rank()
	next, ok := target.Rank()
	if !ok || e.Record.Phase == PhaseCompleted || next != cur+1 {
		return MigrationRecord{}, ErrInvalidTransition
	}
	e.Record.Phase = target
	if target == PhaseCompleted {
		now := time.Now().UTC()
		e.Record.CompletedAt = &now
	}
	return copyRecord(e.Record), nil
}

// Complete is the idempotent terminal operation: completing an already
// completed migration returns the same terminal record without error.
func (s *MigrationStore) Complete(id string) (MigrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return MigrationRecord{}, ErrUnknownMigration
	}
	if e.Record.Phase != PhaseCompleted {
		now := time.Now().UTC()
		e.Record.Phase = PhaseCompleted
		e.Record.CompletedAt = &now
	}
	return copyRecord(e.Record), nil
}

// AppendSnapshot appends to the snapshot log. The log is append-only and
// only one snapshot may ever carry the baseline flag.
func (s *MigrationStore) AppendSnapshot(id string, snap StorageSnapshot) (StorageSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return StorageSnapshot{}, ErrUnknownMigration
	}
	if snap.IsBaseline {
		for _, existing := range e.Snapshots {
			if existing.IsBaseline {
				return StorageSnapshot{}, ErrBaselineAlreadySet
			}
		}
	}
	e.Snapshots = append(e.Snapshots, snap)
	return snap, nil
}

func (s *MigrationStore) Snapshots(id string) ([]StorageSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrUnknownMigration
	}
	out := make([]StorageSnapshot, len(e.Snapshots))
	copy(out, e.Snapshots)
	return out, nil
}

// UpdateTrack applies a collaborator-reported track update. The regression
// checks run against the latest committed state under the write lock, so
// concurrent writers cannot both pass a stale check.
func (s *MigrationStore) UpdateTrack(id string, mt MediaType, count int, size int64, status TrackStatus, dayIndex int) (TransferTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return TransferTrack{}, ErrUnknownMigration
	}

	newRank, ok := status.Rank()
	if !ok {
		return TransferTrack{}, ErrRegressionRejected
	}
	track, ok := e.Tracks[mt]
	if !ok {
		track = &TransferTrack{MediaType: mt, Status: TrackNotStarted}
		e.Tracks[mt] = track
	}
	curRank, _ := track.Status.Rank()
	switch {
	case track.Status.Terminal() && status != track.Status:
		return TransferTrack{}, ErrRegressionRejected
	case newRank < curRank:
		return TransferTrack{}, ErrRegressionRejected
	case count < track.TransferredCount || size < track.TransferredSizeBytes:
		return TransferTrack{}, ErrRegressionRejected
	case count > e.Record.Counts[mt]:
		return TransferTrack{}, ErrRegressionRejected
	}

	track.Status = status
	track.TransferredCount = count
	track.TransferredSizeBytes = size
	if track.VisibleSinceDay == 0 && count > 0 && dayIndex > 0 {
		track.VisibleSinceDay = dayIndex
	}
	return *track, nil
}

func (s *MigrationStore) Tracks(id string) (map[MediaType]TransferTrack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrUnknownMigration
	}
	out := make(map[MediaType]TransferTrack, len(e.Tracks))
	for mt, track := range e.Tracks {
		out[mt] = *track
	}
	return out, nil
}

// SetTransferID stores the opaque correlation id from the transfer
// collaborator. The core never interprets it.
func (s *MigrationStore) SetTransferID(id, transferID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return ErrUnknownMigration
	}
	e.Record.TransferID = transferID
	return nil
}

// PutMilestone closes a day. A day already closed keeps its stored value
// unless overwrite is set (the final-day completion rewrite).
func (s *MigrationStore) PutMilestone(id string, m DayMilestone, overwrite bool) (DayMilestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return DayMilestone{}, ErrUnknownMigration
	}
	if existing, ok := e.Milestones[m.DayIndex]; ok && !overwrite {
		return *existing, nil
	}
	stored := m
	e.Milestones[m.DayIndex] = &stored
	return stored, nil
}

func (s *MigrationStore) Milestone(id string, day int) (DayMilestone, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return DayMilestone{}, false, ErrUnknownMigration
	}
	m, ok := e.Milestones[day]
	if !ok {
		return DayMilestone{}, false, nil
	}
	return *m, true, nil
}

func (s *MigrationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetData returns a deep copy of all entries for persistence.
func (s *MigrationStore) GetData() map[string]*MigrationData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*MigrationData, len(s.entries))
	for id, e := range s.entries {
		out[id] = copyMigrationData(e)
	}
	return out
}

// PutData replaces all entries, normalizing nil collections from older
// persistence formats.
func (s *MigrationStore) PutData(data map[string]*MigrationData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*MigrationData, len(data))
	for id, e := range data {
		if e == nil {
			continue
		}
		cp := copyMigrationData(e)
		if cp.Tracks == nil {
			cp.Tracks = make(map[MediaType]*TransferTrack)
		}
		if cp.Milestones == nil {
			cp.Milestones = make(map[int]*DayMilestone)
		}
		s.entries[id] = cp
	}
}

func copyRecord(rec MigrationRecord) MigrationRecord {
	cp := rec
	cp.Counts = make(map[MediaType]int, len(rec.Counts))
	for mt, n := range rec.Counts {
		cp.Counts[mt] = n
	}
	if rec.CompletedAt != nil {
		t := *rec.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}

func copyMigrationData(e *MigrationData) *MigrationData {
	cp := &MigrationData{
		Record:     copyRecord(e.Record),
		Tracks:     make(map[MediaType]*TransferTrack, len(e.Tracks)),
		Snapshots:  make([]StorageSnapshot, len(e.Snapshots)),
		Milestones: make(map[int]*DayMilestone, len(e.Milestones)),
	}
	for mt, track := range e.Tracks {
		t := *track
		cp.Tracks[mt] = &t
	}
	copy(cp.Snapshots, e.Snapshots)
	for day, m := range e.Milestones {
		ms := *m
		cp.Milestones[day] = &ms
	}
	return cp
}
