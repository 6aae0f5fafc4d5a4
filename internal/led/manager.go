package led

import (
	"log/slog"
	"sync"

	"github.com/quicoa/daheng-camera-class/internal/events"
)

// Manager maps session state to the LED: solid while capturing, blinking
// while opened, off otherwise.
type Manager struct {
	controller  Controller
	eventBus    *events.Bus
	logger      *slog.Logger
	mu          sync.Mutex
	unsubscribe func()
	current     Pattern
}

// NewManager creates a manager. Call Start to subscribe.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		current:    -1,
	}
}

// Start subscribes to session state changes.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = m.eventBus.Subscribe(m.handleEvent)
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and closes the controller, which turns the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.mu.Unlock()

	if err := m.controller.Close(); err != nil {
		m.logger.Warn("Failed to close LED controller", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

func patternFor(state string) Pattern {
	switch state {
	case "capturing":
		return PatternSolid
	case "opened":
		return PatternBlink
	default:
		return PatternOff
	}
}

func (m *Manager) handleEvent(e events.SessionStateChangedEvent) {
	p := patternFor(e.To)

	m.mu.Lock()
	defer m.mu.Unlock()
	if p == m.current {
		return
	}
	if err := m.controller.Set(p); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", p.String(), "error", err)
		return
	}
	m.current = p
	m.logger.Debug("Status LED updated", "state", e.To, "pattern", p.String())
}
