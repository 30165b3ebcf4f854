package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/polyglot/pkg/evidence"
)

// MemoryStorage implements evidence.Storage with an in-memory map.
// It is meant for tests and dry runs; records do not survive the process.
type MemoryStorage struct {
	records map[string]*evidence.ScenarioRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.ScenarioRecord),
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.ScenarioRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return evidence.NewStorageError("memory", "store", evidence.ErrDuplicateRecord)
	}
	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query returns copies of the matching records, sorted and paginated like
// the SQLite backend.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.ScenarioRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectRecords(query), nil
}

// QueryStream streams the result of Query.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.ScenarioRecord, <-chan error, error) {
	s.mu.RLock()
	records := s.selectRecords(query)
	s.mu.RUnlock()

	recordsCh := make(chan *evidence.ScenarioRecord, streamBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close discards all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.ScenarioRecord)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// caller holds s.mu.
func (s *MemoryStorage) selectRecords(query *evidence.Query) []*evidence.ScenarioRecord {
	results := []*evidence.ScenarioRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sortBy, desc := sortSpec(query)
	sort.SliceStable(results, func(i, j int) bool {
		if desc {
			return lessBy(sortBy, results[j], results[i])
		}
		return lessBy(sortBy, results[i], results[j])
	})

	start := query.Offset
	if start > len(results) {
		return []*evidence.ScenarioRecord{}
	}
	end := len(results)
	if limit := effectiveLimit(query); start+limit < end {
		end = start + limit
	}
	return results[start:end]
}

func lessBy(field string, a, b *evidence.ScenarioRecord) bool {
	switch field {
	case "score":
		if a.Score != b.Score {
			return a.Score < b.Score
		}
	case "refine_count":
		if a.RefineCount != b.RefineCount {
			return a.RefineCount < b.RefineCount
		}
	case "scenario_id":
		if a.ScenarioID != b.ScenarioID {
			return a.ScenarioID < b.ScenarioID
		}
	case "recorded_at":
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
	}
	if !a.FinishedAt.Equal(b.FinishedAt) {
		return a.FinishedAt.Before(b.FinishedAt)
	}
	return a.ID < b.ID
}

func matchesQuery(record *evidence.ScenarioRecord, query *evidence.Query) bool {
	if query.StartTime != nil && record.FinishedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.FinishedAt.After(*query.EndTime) {
		return false
	}
	if query.RunID != "" && record.RunID != query.RunID {
		return false
	}
	if query.Language != "" && record.Language != query.Language {
		return false
	}
	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}
	if query.FailedStage != "" && record.FailedStage != query.FailedStage {
		return false
	}
	if query.MinScore != nil && record.Score < *query.MinScore {
		return false
	}
	if query.MaxScore != nil && record.Score > *query.MaxScore {
		return false
	}
	return true
}
