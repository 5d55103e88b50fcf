package domain

// BaselineReport is a student's diagnostic test result for a subject.
type BaselineReport struct {
	Summary  []BaselineSummary `json:"u_list"`
	Skills   []SkillScore      `json:"s_skills"`
	Concepts []BaselineConcept `json:"concept_wise_data"`
	Taxonomy []TaxonomyScore   `json:"taxonomy_list"`
}

// Empty reports whether the report holds no data at all.
func (r *BaselineReport) Empty() bool {
	return r == nil || len(r.Summary)+len(r.Skills)+len(r.Concepts)+len(r.Taxonomy) == 0
}

// BaselineSummary is the headline row of a baseline report.
type BaselineSummary struct {
	FullName         string  `json:"FullName"`
	SubjectName      string  `json:"SubjectName"`
	BatchName        string  `json:"BatchName"`
	AttendDate       string  `json:"AttendDate"`
	MarksPercent     float64 `json:"MarksPercent"`
	TotalQuestion    int     `json:"TotalQuestion"`
	CorrectQuestion  int     `json:"CorrectQuestion"`
	WeakConceptCount int     `json:"WeakConceptCount"`
	DiffQuesPercent  float64 `json:"DiffQuesPercent"`
	EasyQuesPercent  float64 `json:"EasyQuesPercent"`
	DurationHH       int     `json:"DurationHH"`
	DurationMM       int     `json:"DurationMM"`
}

// SkillScore is the result for one subject skill.
type SkillScore struct {
	SubjectSkillName   string  `json:"SubjectSkillName"`
	TotalQuestion      int     `json:"TotalQuestion"`
	RightAnswerCount   int     `json:"RightAnswerCount"`
	RightAnswerPercent float64 `json:"RightAnswerPercent"`
}

// BaselineConcept is the result for one tested concept.
type BaselineConcept struct {
	ConceptText        string  `json:"ConceptText"`
	BranchName         string  `json:"BranchName"`
	RightAnswerPercent float64 `json:"RightAnswerPercent"`
}

// Cleared reports whether every question on the concept was answered correctly.
func (c BaselineConcept) Cleared() bool {
	return c.RightAnswerPercent == 100
}

// TaxonomyScore is the result for one Bloom taxonomy level.
type TaxonomyScore struct {
	TaxonomyText  string  `json:"TaxonomyText"`
	TotalQuestion int     `json:"TotalQuestion"`
	CorrectAnswer int     `json:"CorrectAnswer"`
	PercentObt    float64 `json:"PercentObt"`
}
