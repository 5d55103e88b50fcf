package domain

// Batch is a class a teacher is assigned to.
type Batch struct {
	BatchID      int    `json:"BatchID"`
	BatchName    string `json:"BatchName"`
	StudentCount *int   `json:"StudentCount,omitempty"`
}

// Student is one row of a class roster.
type Student struct {
	UserID              int64  `json:"UserID"`
	FullName            string `json:"FullName"`
	ClearedConceptCount int    `json:"ClearedConceptCount"`
	WeakConceptCount    int    `json:"WeakConceptCount"`
	TotalConceptCount   int    `json:"TotalConceptCount"`
}

// Progress groups for a class roster, in display order.
const (
	ProgressCompleted  = "completed"
	ProgressInProgress = "in_progress"
	ProgressNone       = "none"
)

// ProgressOrder is the order roster groups are displayed and numbered in.
var ProgressOrder = []string{ProgressCompleted, ProgressInProgress, ProgressNone}

// Progress classifies the student by cleared concepts.
func (s Student) Progress() string {
	switch {
	case s.ClearedConceptCount == s.TotalConceptCount:
		return ProgressCompleted
	case s.ClearedConceptCount > 0:
		return ProgressInProgress
	default:
		return ProgressNone
	}
}

// ClassConcept is per-concept coverage across a class.
type ClassConcept struct {
	ConceptID            int    `json:"ConceptID"`
	ConceptText          string `json:"ConceptText"`
	AttendedStudentCount int    `json:"AttendedStudentCount"`
	ClearedStudentCount  int    `json:"ClearedStudentCount"`
}

// ClassDetail is the roster and concept coverage of one batch for one topic.
type ClassDetail struct {
	Concepts []ClassConcept `json:"Concepts"`
	Students []Student      `json:"Students"`
}
