package agent

import (
	"context"
	"slices"
	"strings"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/metrics"
	"github.com/edubull/eeebee/internal/scope"
	"github.com/edubull/eeebee/internal/session"
)

// Teacher triggers match anywhere in the input; student triggers must be the
// whole input.
var (
	teacherClassTriggers   = []string{"show classes", "show batches", "list classes", "list batches"}
	teacherStudentTriggers = []string{"show students", "list students"}
	studentConceptTriggers = []string{"list concepts", "show concepts", "available concepts"}
	studentGapTriggers     = []string{"learning gaps", "show gaps", "my gaps"}
)

type actionKind int

const (
	actLLM actionKind = iota
	actListClasses
	actListStudents
	actSelectClass
	actSelectStudent
	actListConcepts
	actListGaps
	actSelectConcept
)

type action struct {
	kind    actionKind
	batch   domain.Batch
	student domain.Student
	concept domain.Concept
	// rewrite replaces the user's text in the transcript and the model input.
	rewrite string
}

func batchName(b domain.Batch) string     { return b.BatchName }
func studentName(s domain.Student) string { return s.FullName }
func conceptName(c domain.Concept) string { return c.ConceptText }

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// classify decides what an input means without touching session state.
func (s *Service) classify(sess *session.Session, input string) action {
	lower := strings.ToLower(input)
	active, pinned := sess.Snapshot()

	if sess.Identity().IsTeacher() {
		if containsAny(lower, teacherClassTriggers) {
			return action{kind: actListClasses}
		}
		if pinned != nil && containsAny(lower, teacherStudentTriggers) {
			return action{kind: actListStudents}
		}
		if e, ok := active.Resolve(input); ok {
			switch v := e.Value.(type) {
			case domain.Batch:
				return action{kind: actSelectClass, batch: v}
			case domain.Student:
				return action{kind: actSelectStudent, student: v}
			}
		}
		if pinned != nil {
			if st, ok := scope.MatchName(pinned.Students, studentName, input); ok {
				return action{kind: actSelectStudent, student: st}
			}
		}
		if b, ok := scope.MatchName(sess.Profile.Batches, batchName, input); ok {
			return action{kind: actSelectClass, batch: b}
		}
		return action{kind: actLLM}
	}

	if slices.Contains(studentConceptTriggers, lower) {
		return action{kind: actListConcepts}
	}
	if slices.Contains(studentGapTriggers, lower) {
		return action{kind: actListGaps}
	}
	if e, ok := active.Resolve(input); ok {
		if c, ok := e.Value.(domain.Concept); ok {
			if active.Kind() == scope.KindGap {
				return action{kind: actLLM, rewrite: "Help me understand " + c.ConceptText}
			}
			return action{kind: actSelectConcept, concept: c}
		}
	}
	return action{kind: actLLM}
}

// Route handles one user input: listing commands, then selections against
// the active scope, then the model. The user turn is appended first and
// exactly one assistant turn is committed. Streamed deltas go to emit, which
// may be nil. The caller must hold the session (TryAcquire).
func (s *Service) Route(ctx context.Context, sess *session.Session, raw string, emit Emit) Reply {
	input := strings.TrimSpace(raw)
	act := s.classify(sess, input)

	userText := raw
	meta := map[string]any{}
	if act.rewrite != "" {
		userText = act.rewrite
		meta["raw_input"] = raw
	}
	sess.AppendTurn(session.SpeakerUser, userText)
	s.logEvent(ctx, sess, "outbound", "chat_user_message", userText, meta)

	var reply Reply
	switch act.kind {
	case actListClasses:
		reply = s.listClasses(ctx, sess)
	case actListStudents:
		reply = s.listStudents(ctx, sess)
	case actSelectClass:
		reply = s.selectClass(ctx, sess, act.batch)
	case actSelectStudent:
		reply = s.selectStudent(ctx, sess, act.student)
	case actListConcepts:
		reply = s.listConcepts(ctx, sess)
	case actListGaps:
		reply = s.listGaps(ctx, sess)
	case actSelectConcept:
		reply = s.selectConcept(ctx, sess, act.concept)
	default:
		reply = s.streamReply(ctx, sess, emit)
	}

	metrics.RoutedInputs.WithLabelValues(sess.Identity().Role.String(), string(reply.Kind)).Inc()
	return reply
}

func (s *Service) commit(ctx context.Context, sess *session.Session, kind RouteKind, text string, meta map[string]any) Reply {
	sess.AppendTurn(session.SpeakerAssistant, text)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["route"] = string(kind)
	s.logEvent(ctx, sess, "inbound", "chat_assistant_message", text, meta)
	return Reply{Kind: kind, Text: text}
}

// fail commits one error turn. Scope and pinned class are left as they were.
func (s *Service) fail(ctx context.Context, sess *session.Session, err error, meta map[string]any) Reply {
	text := errorText(err)
	sess.AppendError(text)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["route"] = string(RouteError)
	meta["error"] = err.Error()
	s.logEvent(ctx, sess, "inbound", "chat_error", text, meta)
	return Reply{Kind: RouteError, Text: text, Error: true}
}

func (s *Service) listClasses(ctx context.Context, sess *session.Session) Reply {
	batches := sess.Profile.Batches
	sess.SetScope(scope.New(scope.KindClass, batches, batchName))
	return s.commit(ctx, sess, RouteListing, formatClassList(batches), nil)
}

func (s *Service) listStudents(ctx context.Context, sess *session.Session) Reply {
	sc := studentScope(sess.Pinned().Students)
	sess.SetScope(sc)
	return s.commit(ctx, sess, RouteListing, formatStudentList(sc), nil)
}

func (s *Service) selectClass(ctx context.Context, sess *session.Session, batch domain.Batch) Reply {
	id := sess.Identity()
	detail, err := s.gateway.ClassDetail(ctx, batch.BatchID, sess.Topic, id.OrgCode)
	if err != nil {
		s.logger.Warn("Class detail failed", "session_id", sess.ID, "batch_id", batch.BatchID, "error", err)
		return s.fail(ctx, sess, err, map[string]any{"batch_id": batch.BatchID})
	}
	if len(detail.Students) == 0 {
		return s.commit(ctx, sess, RouteSelection, msgNoClassStudents, map[string]any{"batch_id": batch.BatchID})
	}

	sc := studentScope(detail.Students)
	sess.Pin(&session.Pinned{Batch: batch, Students: detail.Students, Concepts: detail.Concepts}, sc)
	return s.commit(ctx, sess, RouteSelection, formatClassOverview(batch, detail, sc), map[string]any{"batch_id": batch.BatchID})
}

func (s *Service) selectStudent(ctx context.Context, sess *session.Session, st domain.Student) Reply {
	id := sess.Identity()
	concepts, err := s.gateway.StudentConcepts(ctx, st.UserID, sess.Topic, id.OrgCode)
	if err != nil {
		s.logger.Warn("Student concepts failed", "session_id", sess.ID, "student_id", st.UserID, "error", err)
		return s.fail(ctx, sess, err, map[string]any{"student_id": st.UserID})
	}
	return s.commit(ctx, sess, RouteSelection, formatStudentProgress(st, concepts), map[string]any{"student_id": st.UserID})
}

func (s *Service) listConcepts(ctx context.Context, sess *session.Session) Reply {
	sess.SetScope(scope.New(scope.KindConcept, sess.Profile.Concepts, conceptName))
	return s.commit(ctx, sess, RouteListing, formatConceptList(&sess.Profile), nil)
}

func (s *Service) listGaps(ctx context.Context, sess *session.Session) Reply {
	weak := sess.Profile.WeakConcepts
	sess.SetScope(scope.New(scope.KindGap, weak, conceptName))
	return s.commit(ctx, sess, RouteListing, formatGapList(weak), nil)
}

func (s *Service) selectConcept(ctx context.Context, sess *session.Session, c domain.Concept) Reply {
	res, err := s.gateway.RemedialResources(ctx, topicFor(c, sess), c.ConceptID)
	if err != nil {
		s.logger.Warn("Remedial resources failed", "session_id", sess.ID, "concept_id", c.ConceptID, "error", err)
		return s.fail(ctx, sess, err, map[string]any{"concept_id": c.ConceptID})
	}
	return s.commit(ctx, sess, RouteSelection, formatConceptResources(c, res), map[string]any{"concept_id": c.ConceptID})
}

// streamReply forwards the transcript to the model. Partial text from a
// failed stream is never committed.
func (s *Service) streamReply(ctx context.Context, sess *session.Session, emit Emit) Reply {
	msgs, err := BuildLLMMessages(sess, s.prompts)
	if err != nil {
		return s.fail(ctx, sess, err, nil)
	}

	var b strings.Builder
	chunks := 0
	for delta, err := range s.llm.Stream(ctx, msgs) {
		if err != nil {
			s.logger.Warn("Chat stream failed", "session_id", sess.ID, "error", err, "discarded_chars", b.Len())
			return s.fail(ctx, sess, err, map[string]any{"stream_chunks": chunks, "partial": true})
		}
		chunks++
		b.WriteString(delta)
		if emit != nil {
			emit(delta)
		}
	}
	return s.commit(ctx, sess, RouteLLM, b.String(), map[string]any{"stream_chunks": chunks})
}
