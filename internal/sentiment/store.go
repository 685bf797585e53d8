package sentiment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// Store holds validated per-quarter sentiment records in memory,
// keyed by company. Records are append-only: a quarter that already
// exists for a company is rejected, never overwritten, so histories
// stay immutable once the external scorer produced them.
type Store struct {
	mu      sync.RWMutex
	records map[string][]contracts.SentimentRecord // company -> ascending by quarter
	logger  *logger.Logger
}

// NewStore creates an empty sentiment store
func NewStore(log *logger.Logger) *Store {
	return &Store{
		records: make(map[string][]contracts.SentimentRecord),
		logger:  log,
	}
}

// Append adds a record to a company's history. Quarters per company
// must stay totally ordered and unique.
func (s *Store) Append(rec contracts.SentimentRecord) error {
	if rec.Company == "" {
		return fmt.Errorf("sentiment record missing company")
	}
	if rec.Quarter == "" {
		return fmt.Errorf("sentiment record missing quarter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.records[rec.Company]
	for _, existing := range history {
		if existing.Quarter == rec.Quarter {
			return fmt.Errorf("quarter %s already recorded for %s", rec.Quarter, rec.Company)
		}
	}

	history = append(history, rec)
	sort.Slice(history, func(i, j int) bool {
		return history[i].Quarter < history[j].Quarter
	})
	s.records[rec.Company] = history

	s.logger.WithFields(map[string]interface{}{
		"company": rec.Company,
		"quarter": rec.Quarter,
		"valid":   rec.Valid(),
	}).Debug("Appended sentiment record")

	return nil
}

// History returns a copy of a company's ordered record history
func (s *Store) History(company string) []contracts.SentimentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[company]
	out := make([]contracts.SentimentRecord, len(history))
	copy(out, history)
	return out
}

// Companies returns all companies with at least one record
func (s *Store) Companies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	companies := make([]string, 0, len(s.records))
	for company := range s.records {
		companies = append(companies, company)
	}
	sort.Strings(companies)
	return companies
}

// Len returns the total record count across companies
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, history := range s.records {
		n += len(history)
	}
	return n
}
