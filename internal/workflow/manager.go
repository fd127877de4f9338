package workflow

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/internal/errs"
)

// Manager keeps the open form drafts, one Controller each, addressed by a
// client-opaque draft id.
type Manager struct {
	mu           sync.RWMutex
	log          *zap.Logger
	reservations ReservationService
	rooms        RoomService
	drafts       map[string]*Controller
}

func NewManager(log *zap.Logger, reservations ReservationService, rooms RoomService) *Manager {
	return &Manager{
		log:          log,
		reservations: reservations,
		rooms:        rooms,
		drafts:       make(map[string]*Controller),
	}
}

func (m *Manager) Open() string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[id] = New(m.log, m.reservations, m.rooms)
	return id
}

func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.drafts[id]
	if !ok {
		return nil, errs.ErrDraftNotFound
	}
	return c, nil
}

func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, id)
}
