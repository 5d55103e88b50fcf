package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/session"
)

const msgNoBaseline = "No baseline data available."

// BaselineResult is a student's baseline report.
type BaselineResult struct {
	Report *domain.BaselineReport `json:"report"`
	Cached bool                   `json:"cached"`
}

// Baseline returns the student's baseline test report for the session's
// subject. A successful fetch is kept for the life of the session.
func (s *Service) Baseline(ctx context.Context, sess *session.Session) (*BaselineResult, error) {
	id := sess.Identity()
	if id.IsTeacher() || id.English {
		return nil, ErrNotAvailable
	}
	if id.SubjectID == 0 {
		return nil, fmt.Errorf("%w: subject id not available", ErrNotAvailable)
	}
	if r, ok := sess.Baseline(); ok {
		return &BaselineResult{Report: r, Cached: true}, nil
	}

	r, err := s.gateway.BaselineReport(ctx, id.UserID, id.SubjectID, id.OrgCode)
	if err != nil {
		return nil, fmt.Errorf("fetch baseline report: %w", err)
	}
	sess.SetBaseline(r)
	s.logEvent(ctx, sess, "inbound", "baseline_report", FormatBaseline(r), map[string]any{
		"subject_id": id.SubjectID,
	})
	return &BaselineResult{Report: r}, nil
}

// FormatBaseline renders a baseline report as plain text sections.
func FormatBaseline(r *domain.BaselineReport) string {
	if r.Empty() {
		return msgNoBaseline
	}
	var b strings.Builder
	if len(r.Summary) > 0 {
		u := r.Summary[0]
		b.WriteString("Overall Performance Summary\n")
		fmt.Fprintf(&b, "  Name: %s | Subject: %s | Batch: %s | Attempt Date: %s\n", u.FullName, u.SubjectName, u.BatchName, u.AttendDate)
		fmt.Fprintf(&b, "  Marks: %g%% | Total Concepts: %d | Cleared: %d | Weak: %d\n", u.MarksPercent, u.TotalQuestion, u.CorrectQuestion, u.WeakConceptCount)
		fmt.Fprintf(&b, "  Difficult Ques.: %g%% | Easy Ques.: %g%% | Time Taken: %dh %dm\n\n", u.DiffQuesPercent, u.EasyQuesPercent, u.DurationHH, u.DurationMM)
	}
	if len(r.Skills) > 0 {
		b.WriteString("Skill-wise Performance\n")
		for _, sk := range r.Skills {
			fmt.Fprintf(&b, "  %-30s %d/%d (%g%%)\n", sk.SubjectSkillName, sk.RightAnswerCount, sk.TotalQuestion, sk.RightAnswerPercent)
		}
		b.WriteString("\n")
	}
	if len(r.Concepts) > 0 {
		b.WriteString("Concept-wise Performance\n")
		for i, c := range r.Concepts {
			mark := "❌"
			if c.Cleared() {
				mark = "✅"
			}
			fmt.Fprintf(&b, "  %d. %s %s (Class %s)\n", i+1, c.ConceptText, mark, c.BranchName)
		}
		b.WriteString("\n")
	}
	if len(r.Taxonomy) > 0 {
		b.WriteString("Bloom's Taxonomy Performance\n")
		for _, t := range r.Taxonomy {
			fmt.Fprintf(&b, "  %-30s %d/%d (%g%%)\n", t.TaxonomyText, t.CorrectAnswer, t.TotalQuestion, t.PercentObt)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
