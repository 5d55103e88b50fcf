package agent

import (
	"context"
	"fmt"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/session"
	"golang.org/x/sync/errgroup"
)

// GapRow is one line of the gap analysis table.
type GapRow struct {
	ConceptID   int    `json:"concept_id"`
	ConceptText string `json:"concept"`
	Status      string `json:"status"`
	// Remedial is rendered resource links, or "-" for concepts that need none.
	Remedial string `json:"remedial"`
}

// AnalyzeGaps fetches every concept for a student and the remedial resources
// for those that need them. Fetches run concurrently up to the configured
// fan-out; the first failure aborts the whole analysis.
func (s *Service) AnalyzeGaps(ctx context.Context, sess *session.Session) ([]GapRow, error) {
	id := sess.Identity()
	if id.IsTeacher() || id.English {
		return nil, ErrNotAvailable
	}

	concepts, err := s.gateway.AllConcepts(ctx, id.OrgCode, id.SubjectID, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch concepts: %w", err)
	}

	rows := make([]GapRow, len(concepts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.GapFanout)

	for i, c := range concepts {
		rows[i] = GapRow{ConceptID: c.ConceptID, ConceptText: c.ConceptText, Status: c.ConceptStatus, Remedial: "-"}
		if !c.NeedsRemedy() {
			continue
		}
		g.Go(func() error {
			res, err := s.gateway.RemedialResources(gctx, topicFor(c, sess), c.ConceptID)
			if err != nil {
				return fmt.Errorf("resources for concept %d: %w", c.ConceptID, err)
			}
			rows[i].Remedial = FormatResources(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Gap analysis complete", "session_id", sess.ID, "concepts", len(rows))
	return rows, nil
}

func topicFor(c domain.Concept, sess *session.Session) int {
	if c.TopicID != 0 {
		return c.TopicID
	}
	return sess.Topic
}
