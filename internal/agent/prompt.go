package agent

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/edubull/eeebee/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type promptFile struct {
	TeacherSystem   string `yaml:"teacher_system"`
	StudentSystem   string `yaml:"student_system"`
	LearningPath    string `yaml:"learning_path"`
	ExamQuestions   string `yaml:"exam_questions"`
	GreetingTeacher string `yaml:"greeting_teacher"`
	GreetingStudent string `yaml:"greeting_student"`
	QuickPrompts    struct {
		Teacher []string `yaml:"teacher"`
		Student []string `yaml:"student"`
	} `yaml:"quick_prompts"`
}

// Prompts holds the parsed prompt templates.
type Prompts struct {
	teacherSystem   *template.Template
	studentSystem   *template.Template
	learningPath    *template.Template
	examQuestions   *template.Template
	greetingTeacher *template.Template
	greetingStudent *template.Template
	quickTeacher    []string
	quickStudent    []string
}

// promptData is what every template sees.
type promptData struct {
	Name         string
	TopicName    string
	BranchName   string
	Batches      []domain.Batch
	WeakConcepts string
	ConceptText  string
	BloomLevel   string
}

// LoadPrompts reads templates from path, or the built-in set when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	raw := defaultPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts: %w", err)
		}
		raw = b
	}
	return parsePrompts(raw)
}

// DefaultPrompts returns the built-in templates. It panics if they are broken.
func DefaultPrompts() *Prompts {
	p, err := parsePrompts(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return p
}

func parsePrompts(raw []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	p := &Prompts{quickTeacher: f.QuickPrompts.Teacher, quickStudent: f.QuickPrompts.Student}
	for _, t := range []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"teacher_system", f.TeacherSystem, &p.teacherSystem},
		{"student_system", f.StudentSystem, &p.studentSystem},
		{"learning_path", f.LearningPath, &p.learningPath},
		{"exam_questions", f.ExamQuestions, &p.examQuestions},
		{"greeting_teacher", f.GreetingTeacher, &p.greetingTeacher},
		{"greeting_student", f.GreetingStudent, &p.greetingStudent},
	} {
		if strings.TrimSpace(t.src) == "" {
			return nil, fmt.Errorf("prompt %q is empty", t.name)
		}
		tmpl, err := template.New(t.name).Option("missingkey=error").Parse(t.src)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", t.name, err)
		}
		*t.dst = tmpl
	}
	return p, nil
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func dataFor(p *domain.Profile) promptData {
	id := p.Identity
	d := promptData{
		Name:       id.Name,
		TopicName:  orDefault(id.TopicName, "Unknown Topic"),
		BranchName: orDefault(id.BranchName, "their class"),
		Batches:    p.Batches,
	}
	names := make([]string, 0, len(p.WeakConcepts))
	for _, c := range p.WeakConcepts {
		names = append(names, c.ConceptText)
	}
	d.WeakConcepts = "none"
	if len(names) > 0 {
		d.WeakConcepts = strings.Join(names, ", ")
	}
	return d
}

// System renders the role-specific system prompt.
func (p *Prompts) System(profile *domain.Profile) (string, error) {
	if profile.Identity.IsTeacher() {
		return render(p.teacherSystem, dataFor(profile))
	}
	return render(p.studentSystem, dataFor(profile))
}

// Greeting renders the first assistant turn of a session.
func (p *Prompts) Greeting(profile *domain.Profile) (string, error) {
	d := dataFor(profile)
	d.TopicName = orDefault(profile.Identity.TopicName, "this topic")
	if profile.Identity.IsTeacher() {
		return render(p.greetingTeacher, d)
	}
	return render(p.greetingStudent, d)
}

// LearningPath renders the learning path instruction for a concept.
func (p *Prompts) LearningPath(profile *domain.Profile, conceptText string) (string, error) {
	d := dataFor(profile)
	d.ConceptText = conceptText
	return render(p.learningPath, d)
}

// ExamQuestions renders the exam generation instruction.
func (p *Prompts) ExamQuestions(profile *domain.Profile, conceptText, bloomLevel string) (string, error) {
	d := dataFor(profile)
	d.ConceptText = conceptText
	d.BloomLevel = bloomLevel
	return render(p.examQuestions, d)
}

// QuickPrompts returns the canned phrases offered as buttons.
func (p *Prompts) QuickPrompts(role domain.Role) []string {
	if role == domain.RoleTeacher {
		return append([]string(nil), p.quickTeacher...)
	}
	return append([]string(nil), p.quickStudent...)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
