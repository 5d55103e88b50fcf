package domain

// Concept statuses reported by the all-concepts endpoint.
const (
	StatusWeak        = "Weak"
	StatusCleared     = "Cleared"
	StatusNotAttended = "Not-Attended"
)

// Concept is an atomic curriculum unit.
type Concept struct {
	ConceptID     int    `json:"ConceptID"`
	ConceptText   string `json:"ConceptText"`
	TopicID       int    `json:"TopicID,omitempty"`
	ConceptStatus string `json:"ConceptStatus,omitempty"`
}

// NeedsRemedy reports whether remedial resources should be offered.
func (c Concept) NeedsRemedy() bool {
	return c.ConceptStatus == StatusWeak || c.ConceptStatus == StatusNotAttended
}

// ConceptPerformance is one student's record on one concept.
type ConceptPerformance struct {
	ConceptID        int      `json:"ConceptID"`
	ConceptText      string   `json:"ConceptText"`
	AttendedQuestion int      `json:"AttendedQuestion"`
	CorrectQuestion  int      `json:"CorrectQuestion"`
	AvgMarksPercent  *float64 `json:"AvgMarksPercent,omitempty"`
	AvgTimeTakenSS   float64  `json:"AvgTimeTaken_SS"`
	TotalTimeTakenSS float64  `json:"TotalTimeTaken_SS"`
}

// StudentConcepts splits a student's concepts by mastery.
type StudentConcepts struct {
	Weak    []ConceptPerformance `json:"WeakConcepts_List"`
	Cleared []ConceptPerformance `json:"ClearedConcepts_List"`
}

// Video is a recorded lecture.
type Video struct {
	LectureID    int    `json:"LectureID"`
	LectureTitle string `json:"LectureTitle"`
}

// Note is a PDF study note.
type Note struct {
	NotesTitle  string `json:"NotesTitle"`
	FolderName  string `json:"FolderName"`
	PDFFileName string `json:"PDFFileName"`
}

// Exercise is a practice sheet.
type Exercise struct {
	ExerciseTitle    string `json:"ExerciseTitle"`
	FolderName       string `json:"FolderName"`
	ExerciseFileName string `json:"ExerciseFileName"`
}

// Resources are the remedial materials attached to a concept.
type Resources struct {
	Videos    []Video    `json:"Video_List"`
	Notes     []Note     `json:"Notes_List"`
	Exercises []Exercise `json:"Exercise_List"`
}

// Empty reports whether there is nothing to show.
func (r *Resources) Empty() bool {
	return r == nil || (len(r.Videos) == 0 && len(r.Notes) == 0 && len(r.Exercises) == 0)
}
