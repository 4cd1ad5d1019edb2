package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Chunk is a page-scoped slice of the course source text.
type Chunk struct {
	UnitID     string `json:"unit_id"`
	Page       int    `json:"page"`
	Citation   string `json:"citation"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
}

// CourseUnit is one topical unit of the course, bounded by a page range.
type CourseUnit struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	StartPage          int      `json:"start_page" yaml:"start_page"`
	EndPage            int      `json:"end_page" yaml:"end_page"`
	LearningObjectives []string `json:"learning_objectives" yaml:"learning_objectives"`
}

// Pages returns the set of pages inside the unit's range.
func (u CourseUnit) Pages() map[int]struct{} {
	pages := make(map[int]struct{})
	for p := u.StartPage; p <= u.EndPage; p++ {
		pages[p] = struct{}{}
	}
	return pages
}

// Evidence is a quote backing a coach answer.
type Evidence struct {
	Quote    string `json:"quote"`
	Citation string `json:"citation"`
}

// CoachAnswer is the structured reply to a learner question.
type CoachAnswer struct {
	Answer     string     `json:"answer"`
	Citations  []string   `json:"citations"`
	Evidence   []Evidence `json:"evidence"`
	Confidence float64    `json:"confidence"`
	IsRefusal  bool       `json:"is_refusal"`
}

// LineNote is a line-level comment on a draft.
type LineNote struct {
	LineNumber  int    `json:"line_number"`
	TextExcerpt string `json:"text_excerpt"`
	Comment     string `json:"comment"`
	Citation    string `json:"citation,omitempty"`
}

// FeedbackReport scores a draft against the four rubric dimensions.
type FeedbackReport struct {
	OverallScore   int            `json:"overall_score"`
	RubricScores   map[string]int `json:"rubric_scores"`
	Strengths      []string       `json:"strengths"`
	CraftRisks     []string       `json:"craft_risks"`
	LineNotes      []LineNote     `json:"line_notes"`
	RevisionPlan   []string       `json:"revision_plan"`
	UnlockEligible bool           `json:"unlock_eligible"`
}

// LessonIdea is a cited study point.
type LessonIdea struct {
	Text     string `json:"text"`
	Citation string `json:"citation"`
}

// LessonPack is the study material for one unit.
type LessonPack struct {
	UnitID              string       `json:"unit_id"`
	Summary             string       `json:"summary"`
	KeyIdeas            []LessonIdea `json:"key_ideas"`
	Pitfalls            []LessonIdea `json:"pitfalls"`
	ReflectionQuestions []string     `json:"reflection_questions"`
	MicroDrills         []string     `json:"micro_drills"`
	SourceMode          string       `json:"source_mode"`
}

// Lesson pack cardinalities.
const (
	KeyIdeaCount            = 5
	PitfallCount            = 3
	ReflectionQuestionCount = 3
	MicroDrillCount         = 2
)

// Lesson pack source modes.
const (
	SourceModeFallback   = "fallback_local"
	SourceModeStructured = "openai_structured"
)

// ExerciseKind separates the two practice slots of a unit.
type ExerciseKind string

const (
	ExerciseCore    ExerciseKind = "core"
	ExerciseStretch ExerciseKind = "stretch"
)

// Exercise source modes.
const (
	ExerciseSourceBook = "book_derived"
	ExerciseSourceUnit = "generated_from_unit"
)

// Exercise is one practice prompt for a unit. Book-derived exercises carry
// the citation of the page their directive came from.
type Exercise struct {
	UnitID          string       `json:"unit_id"`
	Kind            ExerciseKind `json:"kind"`
	SourceMode      string       `json:"source_mode"`
	Objective       string       `json:"objective"`
	Prompt          string       `json:"prompt"`
	SuccessCriteria []string     `json:"success_criteria"`
	TimeboxMinutes  int          `json:"timebox_minutes"`
	Citation        string       `json:"citation,omitempty"`
}

// MissionStatus is the lifecycle state of a revision mission.
type MissionStatus string

const (
	MissionActive     MissionStatus = "active"
	MissionCompleted  MissionStatus = "completed"
	MissionSuperseded MissionStatus = "superseded"
)

// ChecklistDonePrefix starts the final checklist item of every mission.
const ChecklistDonePrefix = "Done when"

// RevisionMission is a focused remediation task built from a feedback report.
type RevisionMission struct {
	ID             *int64        `json:"id,omitempty"`
	UnitID         string        `json:"unit_id"`
	AttemptID      int64         `json:"attempt_id"`
	FocusDimension string        `json:"focus_dimension"`
	Title          string        `json:"title"`
	Instructions   string        `json:"instructions"`
	Checklist      []string      `json:"checklist"`
	Status         MissionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// Attempt is a persisted draft evaluation.
type Attempt struct {
	ID           int64          `json:"id"`
	UnitID       string         `json:"unit_id"`
	Draft        string         `json:"draft"`
	OverallScore int            `json:"overall_score"`
	Report       FeedbackReport `json:"report"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ChatTurn is one persisted coach exchange.
type ChatTurn struct {
	UnitID    string    `json:"unit_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Citations []string  `json:"citations"`
	CreatedAt time.Time `json:"created_at"`
}

// Progress tracks where the learner is in the course.
type Progress struct {
	CurrentUnitID   string         `json:"current_unit_id"`
	UnlockedUnits   []string       `json:"unlocked_units"`
	Attempts        map[string]int `json:"attempts"`
	BestScoreByUnit map[string]int `json:"best_score_by_unit"`
	LastOpenedAt    time.Time      `json:"last_opened_at"`
}

// Rubric dimension keys, in canonical order.
const (
	DimConceptApplication     = "concept_application"
	DimNarrativeEffectiveness = "narrative_effectiveness"
	DimLanguagePrecision      = "language_precision"
	DimRevisionReadiness      = "revision_readiness"
)

// RubricDimensions lists the four scoring axes in canonical order.
var RubricDimensions = []string{
	DimConceptApplication,
	DimNarrativeEffectiveness,
	DimLanguagePrecision,
	DimRevisionReadiness,
}

var rubricWeights = map[string]float64{
	DimConceptApplication:     0.35,
	DimNarrativeEffectiveness: 0.30,
	DimLanguagePrecision:      0.20,
	DimRevisionReadiness:      0.15,
}

var dimensionLabels = map[string]string{
	DimConceptApplication:     "Concept Application",
	DimNarrativeEffectiveness: "Narrative Effectiveness",
	DimLanguagePrecision:      "Language Precision",
	DimRevisionReadiness:      "Revision Readiness",
}

// IsRubricDimension reports whether key is one of the four dimensions.
func IsRubricDimension(key string) bool {
	_, ok := rubricWeights[key]
	return ok
}

// DimensionLabel returns the display label for a rubric dimension.
func DimensionLabel(key string) string {
	if l, ok := dimensionLabels[key]; ok {
		return l
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// WeightedScore combines rubric scores with the 35/30/20/15 weighting.
// Missing dimensions count as zero.
func WeightedScore(rubric map[string]int) int {
	total := 0.0
	for _, dim := range RubricDimensions {
		total += float64(rubric[dim]) * rubricWeights[dim]
	}
	return ClampScore(roundHalfEven(total))
}

// ClampScore bounds a score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundHalfEven(v float64) int {
	whole := float64(int(v))
	frac := v - whole
	switch {
	case frac > 0.5:
		return int(whole) + 1
	case frac < 0.5:
		return int(whole)
	default:
		if int(whole)%2 == 0 {
			return int(whole)
		}
		return int(whole) + 1
	}
}

// Thresholds configures relevance gating and unlocking.
type Thresholds struct {
	MinOverlap      int
	MinRatio        float64
	UnlockThreshold int
}

// DefaultThresholds returns the standard gating values.
func DefaultThresholds() Thresholds {
	return Thresholds{MinOverlap: 1, MinRatio: 0.15, UnlockThreshold: 85}
}

// Unlocks reports whether score clears the unlock threshold.
func (t Thresholds) Unlocks(score int) bool {
	return score >= t.UnlockThreshold
}

var citationRe = regexp.MustCompile(`^p\.(\d+)$`)

// InlineCitationRe matches a visible "(p.N)" marker inside prose.
var InlineCitationRe = regexp.MustCompile(`\(p\.\d+\)`)

// FormatCitation renders a page as a citation.
func FormatCitation(page int) string {
	return fmt.Sprintf("p.%d", page)
}

// CitationPage parses a citation of exact form "p.N" with N > 0.
func CitationPage(citation string) (int, bool) {
	m := citationRe.FindStringSubmatch(strings.TrimSpace(citation))
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page <= 0 {
		return 0, false
	}
	return page, true
}

// ValidCitation reports whether citation is well-formed and names a page in pages.
func ValidCitation(citation string, pages map[int]struct{}) bool {
	page, ok := CitationPage(citation)
	if !ok {
		return false
	}
	_, ok = pages[page]
	return ok
}

// ValidPages collects the page numbers present in a chunk pool.
func ValidPages(chunks []Chunk) map[int]struct{} {
	pages := make(map[int]struct{}, len(chunks))
	for _, c := range chunks {
		if c.Page > 0 {
			pages[c.Page] = struct{}{}
		}
	}
	return pages
}

// FirstCitation returns the citation for the first chunk, or a unit page fallback.
func FirstCitation(chunks []Chunk, fallbackPage int) string {
	if len(chunks) > 0 && chunks[0].Page > 0 {
		return FormatCitation(chunks[0].Page)
	}
	if fallbackPage <= 0 {
		fallbackPage = 1
	}
	return FormatCitation(fallbackPage)
}
