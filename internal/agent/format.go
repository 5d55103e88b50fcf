package agent

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/scope"
)

const notAvailable = "N/A"

const (
	msgNoClasses       = "You don't have any classes assigned for this topic."
	msgNoClassStudents = "I couldn't get the student information for this class. Please try again."
	msgNoConcepts      = "I don't have any concepts available for your current topic. Please check with your teacher."
	msgNoGaps          = "Great news! I don't see any significant learning gaps in your current topic. If you'd like to review any concept, use the 'show concepts' command to see all available concepts."
	msgNoResources     = "No remedial resources available for this concept."
)

func errorText(err error) string {
	return "I'm sorry, I encountered an error: " + err.Error()
}

// formatDuration renders seconds as "Xm Ys" or "Ys". Zero is "N/A".
func formatDuration(seconds float64) string {
	s := int64(math.Round(seconds))
	if s <= 0 {
		return notAvailable
	}
	if m := s / 60; m > 0 {
		return fmt.Sprintf("%dm %ds", m, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func ratioPercent(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func formatClassList(batches []domain.Batch) string {
	if len(batches) == 0 {
		return msgNoClasses
	}
	var b strings.Builder
	b.WriteString("Your classes:\n\n")
	for i, batch := range batches {
		count := notAvailable
		if batch.StudentCount != nil {
			count = strconv.Itoa(*batch.StudentCount)
		}
		fmt.Fprintf(&b, "%d. %s (%s students)\n", i+1, batch.BatchName, count)
	}
	b.WriteString("\n📢 Just type the number or name of the class you want to analyze.")
	return b.String()
}

var progressHeaders = map[string]string{
	domain.ProgressCompleted:  "✅ Completed all concepts:",
	domain.ProgressInProgress: "🔄 In progress:",
	domain.ProgressNone:       "⚠️ No concepts cleared:",
}

func studentScope(students []domain.Student) *scope.Scope {
	return scope.NewGrouped(scope.KindStudent, students,
		func(s domain.Student) string { return s.FullName },
		func(s domain.Student) string { return s.Progress() },
		domain.ProgressOrder,
	)
}

// formatStudentList renders a grouped student scope. Numbering follows the
// scope tokens, so it matches what Resolve accepts.
func formatStudentList(sc *scope.Scope) string {
	var b strings.Builder
	b.WriteString("Students in this class:\n")
	group := ""
	for _, e := range sc.Entries() {
		if e.Group != group {
			group = e.Group
			fmt.Fprintf(&b, "\n%s\n", progressHeaders[group])
		}
		st := e.Value.(domain.Student)
		fmt.Fprintf(&b, "%s. %s", e.Token, st.FullName)
		if group == domain.ProgressInProgress {
			fmt.Fprintf(&b, " (%d/%d concepts cleared)", st.ClearedConceptCount, st.TotalConceptCount)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n⌨️ Just type the number or name of a student to analyze their progress")
	return b.String()
}

func formatClassOverview(batch domain.Batch, detail *domain.ClassDetail, sc *scope.Scope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Looking at class %s:\n\n", batch.BatchName)
	b.WriteString("Class Overview:\n\n")
	fmt.Fprintf(&b, "- Total Students: %d\n", len(detail.Students))
	if len(detail.Concepts) == 0 {
		fmt.Fprintf(&b, "- Concepts Coverage: %s\n", notAvailable)
	} else {
		b.WriteString("- Concepts Coverage:\n")
		for _, c := range detail.Concepts {
			fmt.Fprintf(&b, "- %s: %d/%d students cleared (%s)\n",
				c.ConceptText, c.ClearedStudentCount, c.AttendedStudentCount,
				formatPercent(ratioPercent(c.ClearedStudentCount, c.AttendedStudentCount)))
		}
	}
	b.WriteString("\n")
	b.WriteString(formatStudentList(sc))
	return b.String()
}

func formatConceptDetail(c domain.ConceptPerformance) string {
	if c.AttendedQuestion == 0 {
		return fmt.Sprintf("- %s\n  📝 Not attempted any questions yet", c.ConceptText)
	}
	marks := notAvailable
	if c.AvgMarksPercent != nil {
		marks = formatPercent(*c.AvgMarksPercent)
	}
	return fmt.Sprintf("- %s\n  📝 Questions: %d/%d correct (%s)\n  ⏱️ Average time per question: %s\n  ⌛ Total time spent: %s",
		c.ConceptText, c.CorrectQuestion, c.AttendedQuestion, marks,
		formatDuration(c.AvgTimeTakenSS), formatDuration(c.TotalTimeTakenSS))
}

func formatStudentProgress(st domain.Student, sc *domain.StudentConcepts) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Looking at %s's progress:\n\n", st.FullName)
	b.WriteString("📊 Overall Performance:\n")
	fmt.Fprintf(&b, "- Progress: %s\n", formatPercent(ratioPercent(st.ClearedConceptCount, st.TotalConceptCount)))

	var questions, correct, attempted int
	var seconds float64
	for _, c := range append(append([]domain.ConceptPerformance(nil), sc.Weak...), sc.Cleared...) {
		if c.AttendedQuestion > 0 {
			attempted++
			questions += c.AttendedQuestion
			correct += c.CorrectQuestion
			seconds += c.TotalTimeTakenSS
		}
	}
	if attempted > 0 {
		fmt.Fprintf(&b, "- Overall Accuracy: %s\n", formatPercent(ratioPercent(correct, questions)))
		fmt.Fprintf(&b, "- Total Questions Attempted: %d\n", questions)
		fmt.Fprintf(&b, "- Total Time Spent: %s\n", formatDuration(seconds))
	}

	b.WriteString("\n🔍 Concepts Needing Attention:\n")
	if len(sc.Weak) == 0 {
		b.WriteString("✅ No weak concepts identified\n")
	}
	for _, c := range sc.Weak {
		b.WriteString(formatConceptDetail(c) + "\n")
	}

	b.WriteString("\n✨ Mastered Concepts:\n")
	if len(sc.Cleared) == 0 {
		b.WriteString("⚠️ No concepts cleared yet\n")
	}
	for _, c := range sc.Cleared {
		b.WriteString(formatConceptDetail(c) + "\n")
	}

	b.WriteString("\nYou can ask me about:\n" +
		"- Specific teaching strategies for concepts they're struggling with\n" +
		"- How to improve their accuracy and speed\n" +
		"- Ways to help them progress in specific concepts\n" +
		"- Detailed analysis of their performance in any concept")
	return b.String()
}

func formatConceptList(p *domain.Profile) string {
	if len(p.Concepts) == 0 {
		return msgNoConcepts
	}
	var b strings.Builder
	b.WriteString("📚 **Available Concepts:**\n\n")
	for i, c := range p.Concepts {
		mark := "✅"
		if p.IsWeak(c.ConceptID) {
			mark = "⚠️"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, mark, c.ConceptText)
	}
	b.WriteString("\nTo learn about any concept, just type its number!")
	return b.String()
}

func formatGapList(weak []domain.Concept) string {
	if len(weak) == 0 {
		return msgNoGaps
	}
	var b strings.Builder
	b.WriteString("🎯 **Your Current Learning Gaps:**\n\n")
	for i, c := range weak {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.ConceptText)
	}
	b.WriteString("\nTo get help with any of these concepts, just type its number!")
	return b.String()
}

// FormatResources renders remedial resources as markdown links.
func FormatResources(r *domain.Resources) string {
	if r.Empty() {
		return msgNoResources
	}
	var b strings.Builder
	if len(r.Videos) > 0 {
		b.WriteString("**🎥 Video Lectures:**\n")
		for _, v := range r.Videos {
			fmt.Fprintf(&b, "- [%s](%s%d)\n", orDefault(v.LectureTitle, "Video Lecture"), gateway.VideoBaseURL, v.LectureID)
		}
		b.WriteString("\n")
	}
	if len(r.Notes) > 0 {
		b.WriteString("**📄 Study Notes:**\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- [%s](%s%s)\n", orDefault(n.NotesTitle, "Study Notes"), n.FolderName, n.PDFFileName)
		}
		b.WriteString("\n")
	}
	if len(r.Exercises) > 0 {
		b.WriteString("**📝 Practice Exercises:**\n")
		for _, e := range r.Exercises {
			fmt.Fprintf(&b, "- [%s](%s%s)\n", orDefault(e.ExerciseTitle, "Practice Exercise"), e.FolderName, e.ExerciseFileName)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatConceptResources(c domain.Concept, r *domain.Resources) string {
	return fmt.Sprintf("📘 **%s**\n\nHere are some resources to help you learn this concept:\n\n%s\n\nTell me what you find tricky about %s and we can work through it together.",
		c.ConceptText, FormatResources(r), c.ConceptText)
}
