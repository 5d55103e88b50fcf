// Package report renders generated learning paths and exam questions as PDF.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/edubull/eeebee/internal/session"
	"github.com/go-pdf/fpdf"
)

var (
	markdownEmphasis = regexp.MustCompile(`\*\*|__`)
	markdownHeading  = regexp.MustCompile(`^#{1,6}\s*`)
	leadingNumber    = regexp.MustCompile(`^\d+[.)]\s*`)
)

// Title returns the document title for a report kind.
func Title(kind session.ReportKind) string {
	if kind == session.ReportExamQuestions {
		return "Exam Questions"
	}
	return "Personalized Learning Path"
}

// Filename returns the download name, e.g. "Ravi_Learning_Path_Decimals.pdf".
func Filename(r session.Report) string {
	label := "Learning_Path"
	if r.Kind == session.ReportExamQuestions {
		label = "Exam_Questions"
	}
	name := fmt.Sprintf("%s_%s_%s.pdf", orDefault(r.UserName, "EeeBee"), label, orDefault(r.ConceptText, "Concept"))
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}

// Section is a block of generated text separated by a blank line. The first
// line is its heading.
type Section struct {
	Heading string
	Lines   []string
}

// Sections splits text on blank lines, dropping empty lines and markdown
// emphasis.
func Sections(text string) []Section {
	var out []Section
	for _, block := range strings.Split(strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n"), "\n\n") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(markdownEmphasis.ReplaceAllString(line, ""))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, Section{
			Heading: markdownHeading.ReplaceAllString(lines[0], ""),
			Lines:   lines[1:],
		})
	}
	return out
}

// Render writes r as a PDF to w.
func Render(w io.Writer, r session.Report) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(25, 25, 25)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(Title(r.Kind), true)
	pdf.SetAuthor("EeeBee", true)
	pdf.AddPage()

	// Core fonts are cp1252; characters outside it are dropped.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	defaultWho := "Student"
	if r.Kind == session.ReportExamQuestions {
		defaultWho = "Teacher"
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(Title(r.Kind)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	subtitle := fmt.Sprintf("For %s - %s", orDefault(r.UserName, defaultWho), orDefault(r.ConceptText, "Selected Concept"))
	pdf.CellFormat(0, 8, tr(subtitle), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	for _, s := range Sections(r.Text) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 7, tr(s.Heading), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "", 10)
		for i, line := range s.Lines {
			if r.Kind == session.ReportExamQuestions {
				line = fmt.Sprintf("%d. %s", i+1, leadingNumber.ReplaceAllString(line, ""))
			}
			pdf.MultiCell(0, 5.5, tr(line), "", "J", false)
			pdf.Ln(1)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
