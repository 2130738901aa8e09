package server

import (
	"math/rand"
	"sync"

	"TimeBounce/internal/sim"
)

// Session binds one connected viewer to its own simulation controller. Every
// session owns a fresh controller; nothing is shared between sessions, so a
// client tuning gravity never disturbs another client's run.
type Session struct {
	ID   string
	Ctrl *sim.Controller
}

// Hub tracks the live sessions. It only guards the registry; each session's
// simulation state is serialized by its own controller.
type Hub struct {
	Sessions map[string]*Session
	Cfg      sim.Config
	Mu       sync.Mutex
}

func NewHub(cfg sim.Config) *Hub {
	return &Hub{
		Sessions: map[string]*Session{},
		Cfg:      cfg,
	}
}

// AddSession creates a session around a new controller built from cfg (the
// hub default plus any per-connection overrides).
func (h *Hub) AddSession(cfg sim.Config) (*Session, error) {
	ctrl, err := sim.NewController(cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{ID: RandID("s"), Ctrl: ctrl}
	h.Mu.Lock()
	h.Sessions[s.ID] = s
	h.Mu.Unlock()
	return s, nil
}

func (h *Hub) RemoveSession(id string) {
	h.Mu.Lock()
	delete(h.Sessions, id)
	h.Mu.Unlock()
}

func (h *Hub) SessionCount() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return len(h.Sessions)
}

func RandID(prefix string) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return prefix + "-" + string(b)
}
