package agent

import (
	"context"
	"iter"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/llm"
)

// Gateway is the subset of the school API the router needs.
type Gateway interface {
	ClassDetail(ctx context.Context, batchID, topicID int, orgCode string) (*domain.ClassDetail, error)
	StudentConcepts(ctx context.Context, userID int64, topicID int, orgCode string) (*domain.StudentConcepts, error)
	AllConcepts(ctx context.Context, orgCode string, subjectID int, userID int64) ([]domain.Concept, error)
	RemedialResources(ctx context.Context, topicID, conceptID int) (*domain.Resources, error)
	BaselineReport(ctx context.Context, userID int64, subjectID int, orgCode string) (*domain.BaselineReport, error)
}

// LLM produces assistant text.
type LLM interface {
	// Stream yields content deltas, ending after the last delta or one error.
	Stream(ctx context.Context, msgs []llm.Message) iter.Seq2[string, error]

	// Complete runs a single non-streaming completion.
	Complete(ctx context.Context, msgs []llm.Message, maxTokens int) (string, error)
}

var (
	_ Gateway = (*gateway.Client)(nil)
	_ LLM     = (*llm.Client)(nil)
)
