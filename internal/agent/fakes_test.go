package agent

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/llm"
	"github.com/edubull/eeebee/internal/session"
)

type fakeGateway struct {
	mu sync.Mutex

	classDetail     map[int]*domain.ClassDetail
	classErr        error
	studentConcepts *domain.StudentConcepts
	studentErr      error
	concepts        []domain.Concept
	conceptsErr     error
	resources       map[int]*domain.Resources
	resourcesErr    map[int]error
	resourceDelay   time.Duration
	baseline        *domain.BaselineReport
	baselineErr     error

	classCalls    []int
	studentCalls  []int64
	resourceCalls []int
	baselineCalls int

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeGateway) ClassDetail(_ context.Context, batchID, _ int, _ string) (*domain.ClassDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classCalls = append(f.classCalls, batchID)
	if f.classErr != nil {
		return nil, f.classErr
	}
	if d, ok := f.classDetail[batchID]; ok {
		return d, nil
	}
	return &domain.ClassDetail{}, nil
}

func (f *fakeGateway) StudentConcepts(_ context.Context, userID int64, _ int, _ string) (*domain.StudentConcepts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studentCalls = append(f.studentCalls, userID)
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	if f.studentConcepts == nil {
		return &domain.StudentConcepts{}, nil
	}
	return f.studentConcepts, nil
}

func (f *fakeGateway) AllConcepts(context.Context, string, int, int64) ([]domain.Concept, error) {
	if f.conceptsErr != nil {
		return nil, f.conceptsErr
	}
	return f.concepts, nil
}

func (f *fakeGateway) RemedialResources(_ context.Context, _, conceptID int) (*domain.Resources, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		cur := f.maxInflight.Load()
		if n <= cur || f.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.resourceDelay > 0 {
		time.Sleep(f.resourceDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resourceCalls = append(f.resourceCalls, conceptID)
	if err := f.resourcesErr[conceptID]; err != nil {
		return nil, err
	}
	if r, ok := f.resources[conceptID]; ok {
		return r, nil
	}
	return &domain.Resources{}, nil
}

func (f *fakeGateway) BaselineReport(context.Context, int64, int, string) (*domain.BaselineReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baselineCalls++
	if f.baselineErr != nil {
		return nil, f.baselineErr
	}
	if f.baseline == nil {
		return &domain.BaselineReport{}, nil
	}
	return f.baseline, nil
}

type fakeLLM struct {
	mu sync.Mutex

	deltas []string
	// err is yielded after failAfter deltas.
	err       error
	failAfter int

	completion  string
	completeErr error

	streamCalls   [][]llm.Message
	completeCalls [][]llm.Message
}

func (f *fakeLLM) Stream(_ context.Context, msgs []llm.Message) iter.Seq2[string, error] {
	f.mu.Lock()
	f.streamCalls = append(f.streamCalls, msgs)
	f.mu.Unlock()
	return func(yield func(string, error) bool) {
		for i, d := range f.deltas {
			if f.err != nil && i == f.failAfter {
				yield("", f.err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if f.err != nil && f.failAfter >= len(f.deltas) {
			yield("", f.err)
		}
	}
}

func (f *fakeLLM) Complete(_ context.Context, msgs []llm.Message, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls = append(f.completeCalls, msgs)
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completion, nil
}

func (f *fakeLLM) lastStream() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streamCalls) == 0 {
		return nil
	}
	return f.streamCalls[len(f.streamCalls)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(gw *fakeGateway, model *fakeLLM) *Service {
	return NewService(gw, model, nil, nil, ServiceConfig{}, discardLogger())
}

func intPtr(n int) *int { return &n }

func teacherSession() *session.Session {
	return session.New("teacher-session", domain.Profile{
		Identity: domain.Identity{
			UserID:     100,
			Name:       "Meera",
			OrgCode:    "ORG1",
			Role:       domain.RoleTeacher,
			SubjectID:  3,
			TopicName:  "Fractions",
			BranchName: "Class 8",
		},
		Batches: []domain.Batch{
			{BatchID: 1, BatchName: "8-A", StudentCount: intPtr(30)},
			{BatchID: 2, BatchName: "8-B", StudentCount: intPtr(28)},
		},
	}, 77)
}

func studentSession(concepts, weak []domain.Concept) *session.Session {
	return session.New("student-session", domain.Profile{
		Identity: domain.Identity{
			UserID:     200,
			Name:       "Ravi",
			OrgCode:    "ORG1",
			Role:       domain.RoleStudent,
			SubjectID:  3,
			TopicName:  "Fractions",
			BranchName: "Class 8",
		},
		Concepts:     concepts,
		WeakConcepts: weak,
	}, 77)
}

func classB() *domain.ClassDetail {
	return &domain.ClassDetail{
		Concepts: []domain.ClassConcept{
			{ConceptID: 11, ConceptText: "Equivalent fractions", AttendedStudentCount: 4, ClearedStudentCount: 3},
		},
		Students: []domain.Student{
			{UserID: 501, FullName: "Zara", ClearedConceptCount: 0, TotalConceptCount: 5},
			{UserID: 502, FullName: "Arjun", ClearedConceptCount: 5, TotalConceptCount: 5},
			{UserID: 503, FullName: "Kabir", ClearedConceptCount: 2, TotalConceptCount: 5},
		},
	}
}
