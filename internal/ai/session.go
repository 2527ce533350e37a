package ai

import (
	"sync"
	"time"
)

// Phase is the per-chat conversational state. Transitions are
// idle → awaiting-clarification → idle and
// idle → awaiting-confirmation → idle; at most one pending operation
// exists at a time, enforced by the setters below.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingClarification
	PhaseAwaitingConfirmation
)

const (
	// rateLimitCapacity / rateLimitWindow: max AI commands per chat per
	// rolling window. Commands over the limit never reach the LLM.
	rateLimitCapacity = 10
	rateLimitWindow   = time.Minute

	// pendingTimeout invalidates a stale clarification or confirmation
	// when a new AI command arrives after it.
	pendingTimeout = 5 * time.Minute
)

// ClarifyOption is one selectable product in a clarification prompt.
type ClarifyOption struct {
	ID    int64
	Name  string
	Price float64
}

// PendingClarification is created when a fuzzy match yields more than one
// candidate. The mutation is deferred until the user picks an option.
type PendingClarification struct {
	Operation Operation
	Options   []ClarifyOption
	// Deferred arguments for operations that need more than the product id.
	Sale      *RecordSaleArgs
	Update    *ProductUpdates
	CreatedAt time.Time
}

// PendingBulkUpdate is a bulk repricing awaiting explicit confirmation.
// No mutation happens until the user confirms.
type PendingBulkUpdate struct {
	Percentage   float64
	Direction    string // "increase" or "decrease"
	Multiplier   float64
	ProductCount int
	CreatedAt    time.Time
}

// PendingBulkDelete is a catalog-wide delete awaiting confirmation. Only
// created when the catalog exceeds the bulk-confirmation threshold.
type PendingBulkDelete struct {
	ProductCount int
	CreatedAt    time.Time
}

// slidingWindow is a rolling-window rate limiter with explicit capacity.
type slidingWindow struct {
	capacity int
	window   time.Duration
	stamps   []time.Time
}

// allow records the attempt and reports whether it is within capacity.
func (w *slidingWindow) allow(now time.Time) bool {
	cutoff := now.Add(-w.window)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.capacity {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Session is the typed per-chat state: conversational memory, pending
// operation, in-flight guard and rate limiter.
type Session struct {
	mu sync.Mutex

	phase         Phase
	clarification *PendingClarification
	bulkUpdate    *PendingBulkUpdate
	bulkDelete    *PendingBulkDelete

	memory   ConversationMemory
	inFlight bool
	limiter  slidingWindow
}

// BeginResult is the outcome of trying to start an AI command.
type BeginResult int

const (
	BeginOK BeginResult = iota
	BeginBusy
	BeginRateLimited
)

// BeginCommand acquires the in-flight guard and charges the rate limiter.
// A new command invalidates any pending state older than pendingTimeout.
func (s *Session) BeginCommand(now time.Time) BeginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return BeginBusy
	}
	if !s.limiter.allow(now) {
		return BeginRateLimited
	}

	s.expirePendingLocked(now)
	s.inFlight = true
	return BeginOK
}

// EndCommand releases the in-flight guard. Called unconditionally after a
// command, success or failure, so a stuck request cannot lock the chat.
func (s *Session) EndCommand() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Phase returns the current conversational phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetClarification stores a pending clarification, displacing any other
// pending operation.
func (s *Session) SetClarification(p PendingClarification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPendingLocked()
	s.clarification = &p
	s.phase = PhaseAwaitingClarification
}

// TakeClarification consumes the pending clarification, returning to
// idle.
func (s *Session) TakeClarification() (PendingClarification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clarification == nil {
		return PendingClarification{}, false
	}
	p := *s.clarification
	s.clearPendingLocked()
	return p, true
}

// SetBulkUpdate stores a pending bulk repricing, displacing any other
// pending operation.
func (s *Session) SetBulkUpdate(p PendingBulkUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPendingLocked()
	s.bulkUpdate = &p
	s.phase = PhaseAwaitingConfirmation
}

// TakeBulkUpdate consumes the pending bulk repricing.
func (s *Session) TakeBulkUpdate() (PendingBulkUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkUpdate == nil {
		return PendingBulkUpdate{}, false
	}
	p := *s.bulkUpdate
	s.clearPendingLocked()
	return p, true
}

// SetBulkDelete stores a pending catalog-wide delete awaiting
// confirmation.
func (s *Session) SetBulkDelete(p PendingBulkDelete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPendingLocked()
	s.bulkDelete = &p
	s.phase = PhaseAwaitingConfirmation
}

// TakeBulkDelete consumes the pending catalog-wide delete.
func (s *Session) TakeBulkDelete() (PendingBulkDelete, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkDelete == nil {
		return PendingBulkDelete{}, false
	}
	p := *s.bulkDelete
	s.clearPendingLocked()
	return p, true
}

// ClearPending cancels whatever operation is pending and returns to idle.
func (s *Session) ClearPending() {
	s.mu.Lock()
	s.clearPendingLocked()
	s.mu.Unlock()
}

// History returns the conversation window, dropping it when expired.
func (s *Session) History(now time.Time) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.History(now)
}

// RememberExchange appends a user/assistant pair to the window.
func (s *Session) RememberExchange(now time.Time, userMessage, assistantMessage string) {
	s.mu.Lock()
	s.memory.Append(now, userMessage, assistantMessage)
	s.mu.Unlock()
}

func (s *Session) clearPendingLocked() {
	s.clarification = nil
	s.bulkUpdate = nil
	s.bulkDelete = nil
	s.phase = PhaseIdle
}

func (s *Session) expirePendingLocked(now time.Time) {
	var createdAt time.Time
	switch {
	case s.clarification != nil:
		createdAt = s.clarification.CreatedAt
	case s.bulkUpdate != nil:
		createdAt = s.bulkUpdate.CreatedAt
	case s.bulkDelete != nil:
		createdAt = s.bulkDelete.CreatedAt
	default:
		return
	}
	if now.Sub(createdAt) > pendingTimeout {
		s.clearPendingLocked()
	}
}

// Sessions is the per-chat session registry.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns the session for a chat, creating it on first use.
func (s *Sessions) Get(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.m[chatID]
	if !ok {
		session = &Session{
			limiter: slidingWindow{capacity: rateLimitCapacity, window: rateLimitWindow},
		}
		s.m[chatID] = session
	}
	return session
}
