package types

import "github.com/google/uuid"

type TargetType string

const (
	TargetStructure     TargetType = "structure"
	TargetVocab         TargetType = "vocab"
	TargetPronunciation TargetType = "pronunciation"
	TargetFluency       TargetType = "fluency"
	TargetListening     TargetType = "listening"
)

type StageKind string

const (
	StageDialogue   StageKind = "dialogue"
	StageModeling   StageKind = "modeling"
	StageRoleplay   StageKind = "roleplay"
	StageFormative  StageKind = "formative"
	StageSRS        StageKind = "srs"
	StageExtension  StageKind = "extension"
	StageDiagnostic StageKind = "diagnostic"
)

type Target struct {
	Type TargetType `json:"type"`
	ID   string     `json:"id"`
}

type StageTimeouts struct {
	Soft int `json:"soft,omitempty"`
	Hard int `json:"hard,omitempty"`
}

type StageMaterials struct {
	KbRefs          []string `json:"kb_refs,omitempty"`
	Examples        []string `json:"examples,omitempty"`
	RubricRef       string   `json:"rubric_ref,omitempty"`
	SuccessCriteria []string `json:"success_criteria,omitempty"`
	Scenario        string   `json:"scenario,omitempty"`
}

type StageItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type Stage struct {
	ID        string          `json:"id"`
	Kind      StageKind       `json:"kind"`
	Goal      string          `json:"goal,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	Materials *StageMaterials `json:"materials,omitempty"`
	Timeouts  *StageTimeouts  `json:"timeouts,omitempty"`
	Items     []StageItem     `json:"items,omitempty"`
}

type Branching struct {
	OnHighError     string `json:"on_high_error,omitempty"`
	OnFastSuccess   string `json:"on_fast_success,omitempty"`
	OnLowConfidence string `json:"on_low_confidence,omitempty"`
}

// Plan is the lesson plan contract shared by every pipeline component.
// The stored row (LessonPlan) carries this as a jsonb payload; the stage
// order never mutates after creation, only which stage is active per turn.
type Plan struct {
	LessonID  string     `json:"lesson_id"`
	CEFR      string     `json:"cefr,omitempty"`
	Targets   []Target   `json:"targets"`
	Stages    []Stage    `json:"stages"`
	Branching *Branching `json:"branching,omitempty"`
}

// StageByID returns the stage with the given id, or the first stage when the
// id is absent. Returns nil only when the plan has no stages at all.
func (p *Plan) StageByID(stageID string) *Stage {
	if len(p.Stages) == 0 {
		return nil
	}
	for i := range p.Stages {
		if p.Stages[i].ID == stageID {
			return &p.Stages[i]
		}
	}
	return &p.Stages[0]
}

type TurnContext struct {
	ProfileID  uuid.UUID          `json:"profile_id"`
	LessonID   string             `json:"lesson_id"`
	StageID    string             `json:"stage_id"`
	Transcript string             `json:"transcript,omitempty"`
	Signals    map[string]float64 `json:"signals"`
}

type DecisionAction string

const (
	ActionAdvance   DecisionAction = "advance"
	ActionRepeat    DecisionAction = "repeat"
	ActionRemediate DecisionAction = "remediate"
)

type AbilitySnapshot struct {
	Theta float64 `json:"theta"`
	Sigma float64 `json:"sigma"`
}

type Decision struct {
	Action DecisionAction `json:"action"`
	Delta  int            `json:"delta"`
}

type NextTask struct {
	ID         string  `json:"id"`
	Difficulty float64 `json:"difficulty"`
	Variant    string  `json:"variant,omitempty"`
}

type Rationale struct {
	Signals map[string]float64 `json:"signals"`
	Rule    string             `json:"rule"`
}

type AdaptiveDecision struct {
	LessonID  string                     `json:"lesson_id"`
	StageID   string                     `json:"stage_id"`
	Ability   map[string]AbilitySnapshot `json:"ability"`
	Decision  Decision                   `json:"decision"`
	NextTask  *NextTask                  `json:"next_task,omitempty"`
	Rationale Rationale                  `json:"rationale"`
}

type ErrorType string

const (
	ErrorPhon ErrorType = "phon"
	ErrorGram ErrorType = "gram"
	ErrorLex  ErrorType = "lex"
)

type FeedbackError struct {
	Type       ErrorType `json:"type"`
	Snippet    string    `json:"snippet"`
	Correction string    `json:"correction"`
	Severity   int       `json:"severity"`
}

type Task struct {
	StageID string   `json:"stage_id"`
	Prompt  string   `json:"prompt"`
	Targets []Target `json:"targets"`
}

type Feedback struct {
	Summary         string          `json:"summary"`
	Errors          []FeedbackError `json:"errors"`
	Recommendations []string        `json:"recommendations"`
}

type FeedbackMeta struct {
	PronunciationScore float64 `json:"pronunciation_score,omitempty"`
	Confidence         float64 `json:"confidence,omitempty"`
	SpeakingTimeMs     float64 `json:"speaking_time_ms,omitempty"`
}

type TaskFeedback struct {
	Task     Task         `json:"task"`
	Feedback Feedback     `json:"feedback"`
	Meta     FeedbackMeta `json:"meta"`
}

type ScoredDoc struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type RetrievalResult struct {
	PersonalMemory []ScoredDoc `json:"personal_memory"`
	PedagogyDocs   []ScoredDoc `json:"pedagogy_docs"`
}

type PolicyViolation struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type PolicyResult struct {
	Valid          bool              `json:"valid"`
	Violations     []PolicyViolation `json:"violations"`
	RedactedPrompt string            `json:"redacted_prompt,omitempty"`
}

type TurnEvent struct {
	Name  string         `json:"name"`
	Props map[string]any `json:"props"`
}

type Telemetry struct {
	Events []TurnEvent `json:"events"`
}

type TurnResult struct {
	Plan             *Plan             `json:"plan"`
	Task             Task              `json:"task"`
	Feedback         Feedback          `json:"feedback"`
	AdaptiveDecision *AdaptiveDecision `json:"adaptive_decision"`
	Telemetry        Telemetry         `json:"telemetry"`
	PolicyViolations []PolicyViolation `json:"policy_violations,omitempty"`
}
