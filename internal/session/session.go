// Package session holds per-login conversational state.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/scope"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	Error   bool      `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Pinned is the last selected class. It survives scope replacement so a
// student can still be looked up by name after another listing.
type Pinned struct {
	Batch    domain.Batch
	Students []domain.Student
	Concepts []domain.ClassConcept
}

// ReportKind names what produced the stored report.
type ReportKind string

const (
	ReportLearningPath  ReportKind = "learning_path"
	ReportExamQuestions ReportKind = "exam_questions"
)

// Report is the last generated document, kept for PDF export.
type Report struct {
	Kind        ReportKind
	ConceptText string
	Text        string
	UserName    string
	GeneratedAt time.Time
}

// Session is the state of one authenticated user-topic pairing.
type Session struct {
	ID      string
	Profile domain.Profile
	Topic   int
	Created time.Time

	busy sync.Mutex

	mu            sync.RWMutex
	transcript    []Turn
	active        *scope.Scope
	pinned        *Pinned
	report        *Report
	learningPaths map[int]string
	baseline      *domain.BaselineReport
	lastSeen      time.Time
	closed        bool
}

// New creates a session for an authenticated profile.
func New(id string, profile domain.Profile, topic int) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		Profile:       profile,
		Topic:         topic,
		Created:       now,
		learningPaths: make(map[int]string),
		lastSeen:      now,
	}
}

// Identity is shorthand for Profile.Identity.
func (s *Session) Identity() domain.Identity {
	return s.Profile.Identity
}

// TryAcquire claims the session for one routed input. It returns false when
// another input is still being processed or the session has been closed.
func (s *Session) TryAcquire() bool {
	if !s.busy.TryLock() {
		return false
	}
	if s.Closed() {
		s.busy.Unlock()
		return false
	}
	return true
}

// Release ends the claim taken by TryAcquire.
func (s *Session) Release() {
	s.busy.Unlock()
}

// AppendTurn adds a turn. Appending to a closed session is a programming
// error and panics.
func (s *Session) AppendTurn(speaker Speaker, text string) {
	s.appendTurn(Turn{Speaker: speaker, Text: text})
}

// AppendError adds an assistant turn flagged as an error.
func (s *Session) AppendError(text string) {
	s.appendTurn(Turn{Speaker: SpeakerAssistant, Text: text, Error: true})
}

func (s *Session) appendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("session: append to closed session " + s.ID)
	}
	t.At = time.Now()
	s.transcript = append(s.transcript, t)
	s.lastSeen = t.At
}

// Transcript returns a copy of all turns.
func (s *Session) Transcript() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transcript)
}

// SetScope replaces the active scope.
func (s *Session) SetScope(sc *scope.Scope) {
	s.mu.Lock()
	s.active = sc
	s.mu.Unlock()
}

// ClearScope drops the active scope.
func (s *Session) ClearScope() {
	s.SetScope(nil)
}

// Scope returns the active scope, or nil.
func (s *Session) Scope() *scope.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Pin replaces the pinned class and the active scope together.
func (s *Session) Pin(p *Pinned, sc *scope.Scope) {
	s.mu.Lock()
	s.pinned = p
	s.active = sc
	s.mu.Unlock()
}

// Snapshot returns the active scope and pinned class as one consistent pair.
func (s *Session) Snapshot() (*scope.Scope, *Pinned) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.pinned
}

// Pinned returns the pinned class, or nil.
func (s *Session) Pinned() *Pinned {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinned
}

// SetReport stores the last generated document.
func (s *Session) SetReport(r Report) {
	s.mu.Lock()
	s.report = &r
	s.mu.Unlock()
}

// Report returns the last generated document, if any.
func (s *Session) Report() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return Report{}, false
	}
	return *s.report, true
}

// LearningPath returns a memoised learning path for a concept.
func (s *Session) LearningPath(conceptID int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.learningPaths[conceptID]
	return text, ok
}

// SetLearningPath memoises a generated learning path.
func (s *Session) SetLearningPath(conceptID int, text string) {
	s.mu.Lock()
	s.learningPaths[conceptID] = text
	s.mu.Unlock()
}

// Touch records activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// Baseline returns the cached baseline report, if one was fetched.
func (s *Session) Baseline() (*domain.BaselineReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline, s.baseline != nil
}

// SetBaseline caches the baseline report for the life of the session.
func (s *Session) SetBaseline(r *domain.BaselineReport) {
	s.mu.Lock()
	s.baseline = r
	s.mu.Unlock()
}

// Close tears the session down and clears all state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.transcript = nil
	s.active = nil
	s.pinned = nil
	s.report = nil
	s.learningPaths = nil
	s.baseline = nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
