package agent

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/llm"
	"github.com/edubull/eeebee/internal/session"
)

// DefaultBloomLevel is used when an exam request names no level.
const DefaultBloomLevel = "L3"

// BloomLevels are the accepted taxonomy levels, lowest first.
var BloomLevels = []string{"L1", "L2", "L3", "L4", "L5"}

// Generated is the result of a one-shot generation.
type Generated struct {
	Kind        session.ReportKind `json:"kind"`
	ConceptID   int                `json:"concept_id"`
	ConceptText string             `json:"concept"`
	Text        string             `json:"text"`
	Resources   *domain.Resources  `json:"resources,omitempty"`
	Cached      bool               `json:"cached"`
}

// LearningPath generates a study plan for one of the student's concepts.
// The text is memoised per concept for the life of the session.
func (s *Service) LearningPath(ctx context.Context, sess *session.Session, conceptID int) (*Generated, error) {
	if sess.Identity().IsTeacher() {
		return nil, ErrNotAvailable
	}
	c, ok := findConcept(sess.Profile, conceptID)
	if !ok {
		return nil, ErrUnknownConcept
	}

	res, err := s.gateway.RemedialResources(ctx, topicFor(c, sess), c.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("fetch resources: %w", err)
	}

	out := &Generated{
		Kind:        session.ReportLearningPath,
		ConceptID:   c.ConceptID,
		ConceptText: c.ConceptText,
		Resources:   res,
	}
	if text, ok := sess.LearningPath(c.ConceptID); ok {
		out.Text, out.Cached = text, true
	} else {
		prompt, err := s.prompts.LearningPath(&sess.Profile, c.ConceptText)
		if err != nil {
			return nil, err
		}
		text, err := s.generate(ctx, sess, prompt, s.cfg.LearningPathMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("generate learning path: %w", err)
		}
		sess.SetLearningPath(c.ConceptID, text)
		out.Text = text
	}

	s.store(ctx, sess, out)
	return out, nil
}

// ExamQuestions generates questions for a concept of the teacher's pinned
// class at the given Bloom level, one of BloomLevels (default L3).
func (s *Service) ExamQuestions(ctx context.Context, sess *session.Session, conceptID int, bloom string) (*Generated, error) {
	if !sess.Identity().IsTeacher() {
		return nil, ErrNotAvailable
	}
	if bloom == "" {
		bloom = DefaultBloomLevel
	}
	if !slices.Contains(BloomLevels, bloom) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBloomLevel, bloom)
	}
	pinned := sess.Pinned()
	if pinned == nil {
		return nil, ErrNoClassSelected
	}
	var concept *domain.ClassConcept
	for i := range pinned.Concepts {
		if pinned.Concepts[i].ConceptID == conceptID {
			concept = &pinned.Concepts[i]
			break
		}
	}
	if concept == nil {
		return nil, ErrUnknownConcept
	}

	prompt, err := s.prompts.ExamQuestions(&sess.Profile, concept.ConceptText, bloom)
	if err != nil {
		return nil, err
	}
	text, err := s.generate(ctx, sess, prompt, s.cfg.ExamMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate exam questions: %w", err)
	}

	out := &Generated{
		Kind:        session.ReportExamQuestions,
		ConceptID:   concept.ConceptID,
		ConceptText: concept.ConceptText,
		Text:        text,
	}
	s.store(ctx, sess, out)
	return out, nil
}

func (s *Service) generate(ctx context.Context, sess *session.Session, prompt string, maxTokens int) (string, error) {
	system, err := s.prompts.System(&sess.Profile)
	if err != nil {
		return "", err
	}
	return s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: prompt},
	}, maxTokens)
}

func (s *Service) store(ctx context.Context, sess *session.Session, g *Generated) {
	sess.SetReport(session.Report{
		Kind:        g.Kind,
		ConceptText: g.ConceptText,
		Text:        g.Text,
		UserName:    sess.Identity().Name,
		GeneratedAt: time.Now(),
	})
	s.logEvent(ctx, sess, "inbound", string(g.Kind), g.Text, map[string]any{
		"concept_id": g.ConceptID,
		"cached":     g.Cached,
	})
}

func findConcept(p domain.Profile, id int) (domain.Concept, bool) {
	for _, c := range p.Concepts {
		if c.ConceptID == id {
			return c, true
		}
	}
	for _, c := range p.WeakConcepts {
		if c.ConceptID == id {
			return c, true
		}
	}
	return domain.Concept{}, false
}
