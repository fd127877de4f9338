// Package store holds the dashboard's in-memory reservation collection.
// It is the single serialization point for list/detail mutations: every
// code path that changes a reservation goes through ApplyMutationResult
// or Prepend, never through direct slice access.
package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hoteldesk/backoffice-service/internal/model"
)

// Reservations is an injectable state container. Handlers, the poller and
// tests each construct their own instance; there is no package-level state.
type Reservations struct {
	mu         sync.RWMutex
	items      []model.Reservation
	pagination model.Pagination
	selected   *model.Reservation

	listLoading  bool
	statsLoading bool
	lastError    string

	// in-flight guard shared by polling and user-triggered refresh
	refreshing atomic.Bool
}

func NewReservations() *Reservations {
	return &Reservations{}
}

// SetList replaces the collection with a freshly fetched page.
func (s *Reservations) SetList(items []model.Reservation, pagination model.Pagination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]model.Reservation, len(items))
	copy(s.items, items)
	s.pagination = pagination
}

func (s *Reservations) List() ([]model.Reservation, model.Pagination) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.Reservation, len(s.items))
	copy(items, s.items)
	return items, s.pagination
}

// ApplyMutationResult replaces the matching entry in place, keeping its
// original position. It never appends: an update for an id outside the
// current page is dropped, the next list fetch will carry it.
func (s *Reservations) ApplyMutationResult(updated model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == updated.ID {
			s.items[i] = updated
			break
		}
	}
	if s.selected != nil && s.selected.ID == updated.ID {
		cp := updated
		s.selected = &cp
	}
}

// Prepend inserts a newly created reservation at the head of the list,
// matching the most-recent-first ordering the dashboard renders.
func (s *Reservations) Prepend(created model.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]model.Reservation{created}, s.items...)
	s.pagination.Total++
}

func (s *Reservations) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	for i := range s.items {
		if s.items[i].ID == id {
			cp := s.items[i]
			s.selected = &cp
			return
		}
	}
}

func (s *Reservations) Selected() (model.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return model.Reservation{}, false
	}
	return *s.selected, true
}

// WithListLoading runs fn with the list loading flag raised. The flag is
// lowered on both success and failure paths; the previous error message is
// cleared when the attempt starts, never by time.
func (s *Reservations) WithListLoading(fn func() error) error {
	s.setListLoading(true)
	s.clearError()
	defer s.setListLoading(false)
	if err := fn(); err != nil {
		s.setError(err.Error())
		return err
	}
	return nil
}

// WithStatsLoading mirrors WithListLoading for the stats operation group.
func (s *Reservations) WithStatsLoading(fn func() error) error {
	s.mu.Lock()
	s.statsLoading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.statsLoading = false
		s.mu.Unlock()
	}()
	return fn()
}

func (s *Reservations) ListLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLoading
}

func (s *Reservations) StatsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLoading
}

func (s *Reservations) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// TryBeginRefresh acquires the refresh in-flight guard. Polling and manual
// refresh share it so they never run concurrently for the same resource.
func (s *Reservations) TryBeginRefresh() bool {
	return s.refreshing.CompareAndSwap(false, true)
}

func (s *Reservations) EndRefresh() {
	s.refreshing.Store(false)
}

// Stats derives simple statistics from the collection currently held.
func (s *Reservations) Stats(now time.Time) model.ReservationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.ReservationStats{
		Total:    s.pagination.Total,
		ByStatus: make(map[model.Status]int),
	}
	for i := range s.items {
		r := &s.items[i]
		stats.ByStatus[r.Status]++
		switch {
		case r.Status == model.StatusCheckedIn:
			stats.CheckedIn++
		case r.Status == model.StatusConfirmed && r.CheckInDate.After(now):
			stats.Upcoming++
		}
	}
	return stats
}

func (s *Reservations) setListLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listLoading = v
}

func (s *Reservations) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *Reservations) clearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}
