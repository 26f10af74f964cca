package chat

import (
	"context"
	"sync"

	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/pkg/logging"
)

// Notifier pushes out-of-band notices to a persona's live watchers.
type Notifier interface {
	NotifyFavorability(personaID string, favorability int)
}

// FavorabilityStore persists a calibrated favorability value.
type FavorabilityStore interface {
	SetFavorability(ctx context.Context, id string, value int) error
}

// calibrationRunner is satisfied by *Calibrator; split out so tests can
// substitute a canned one.
type calibrationRunner interface {
	Calibrate(ctx context.Context, in CalibrateInput) CalibrationResult
}

// TurnOutcome feeds the drift detector after a turn has been recorded.
// History is the conversation including the turn's two new messages.
type TurnOutcome struct {
	Persona         *persona.Persona
	History         []Message
	Favorability    int
	Applied         bool
	UserName        string
	LastUserMessage string
}

// session is the per-persona drift-detection state. The window holds the
// most recent applied favorability values; calibrating guards against
// overlapping re-evaluations.
type session struct {
	mu          sync.Mutex
	window      []int
	calibrating bool
}

// SessionManager watches favorability across turns and, when the value has
// been flat for a full window on a long enough conversation, re-derives it
// in the background. A completed calibration always clears the window and
// releases the guard, whatever its outcome.
type SessionManager struct {
	calibrator calibrationRunner
	store      FavorabilityStore
	notifier   Notifier
	logger     *logging.Logger

	windowSize int
	minHistory int

	mu       sync.Mutex
	sessions map[string]*session

	// runAsync launches the background calibration; tests swap it for a
	// synchronous variant.
	runAsync func(func())
}

// NewSessionManager wires the drift detector. windowSize is the number of
// consecutive identical values that counts as stagnation; minHistory is the
// minimum conversation length (messages, including the current turn) before
// calibration is considered.
func NewSessionManager(calibrator *Calibrator, store FavorabilityStore, notifier Notifier, logger *logging.Logger, windowSize, minHistory int) *SessionManager {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionManager{
		calibrator: calibrator,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		windowSize: windowSize,
		minHistory: minHistory,
		sessions:   make(map[string]*session),
		runAsync:   func(f func()) { go f() },
	}
}

func (m *SessionManager) session(personaID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[personaID]
	if !ok {
		s = &session{}
		m.sessions[personaID] = s
	}
	return s
}

// Forget drops a persona's drift state, for example after the persona is
// deleted.
func (m *SessionManager) Forget(personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, personaID)
}

// RecordTurn pushes an applied turn's favorability into the persona's
// window and kicks off a background calibration when the stagnation
// conditions hold. Turns that did not apply an update leave the window
// untouched.
func (m *SessionManager) RecordTurn(out TurnOutcome) {
	if !out.Applied || out.Persona == nil {
		return
	}

	s := m.session(out.Persona.ID)

	s.mu.Lock()
	s.window = append(s.window, out.Favorability)
	if len(s.window) > m.windowSize {
		s.window = s.window[len(s.window)-m.windowSize:]
	}
	trigger := len(s.window) == m.windowSize &&
		uniform(s.window) &&
		len(out.History) >= m.minHistory &&
		!s.calibrating
	if trigger {
		s.calibrating = true
	}
	s.mu.Unlock()

	if !trigger {
		return
	}

	m.logger.Info("favorability stagnation detected, scheduling calibration",
		"persona", out.Persona.Name,
		"favorability", out.Favorability,
	)
	m.runAsync(func() { m.calibrate(s, out) })
}

// calibrate runs one background re-evaluation. It is detached from the
// originating request, so it runs on its own context.
func (m *SessionManager) calibrate(s *session, out TurnOutcome) {
	ctx := context.Background()

	defer func() {
		s.mu.Lock()
		s.window = s.window[:0]
		s.calibrating = false
		s.mu.Unlock()
	}()

	res := m.calibrator.Calibrate(ctx, CalibrateInput{
		Persona:             out.Persona,
		History:             out.History,
		CurrentFavorability: out.Favorability,
		UserName:            out.UserName,
		LastUserMessage:     out.LastUserMessage,
	})
	if res.Favorability == out.Favorability {
		return
	}

	// A later turn may have moved the value already; the most recent
	// write wins either way.
	if err := m.store.SetFavorability(ctx, out.Persona.ID, res.Favorability); err != nil {
		m.logger.Error("failed to persist calibrated favorability",
			"persona", out.Persona.Name,
			"error", err,
		)
		return
	}
	m.logger.Info("favorability calibrated",
		"persona", out.Persona.Name,
		"from", out.Favorability,
		"to", res.Favorability,
	)
	if m.notifier != nil {
		m.notifier.NotifyFavorability(out.Persona.ID, res.Favorability)
	}
}

func uniform(values []int) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
