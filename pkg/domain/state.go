package domain

// Mode selects the hydration strategy and the submission verb.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Status is the coarse state of a wizard session.
type Status string

const (
	StatusEditing    Status = "editing"    // Editing(stepIndex)
	StatusSubmitting Status = "submitting" // single in-flight submission
	StatusClosed     Status = "closed"     // terminal: submitted or abandoned
)

// StepStatus describes a step from the point of view of a step indicator.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCurrent   StepStatus = "current"
	StepCompleted StepStatus = "completed"
)

// Option is one entry of a reference option list (colors, makes, models).
type Option struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}

// State is a read-only snapshot of a session, safe to hand to shells.
type State struct {
	SessionID string `json:"session_id"`
	Wizard    string `json:"wizard"`
	Mode      Mode   `json:"mode"`
	EntityID  string `json:"entity_id,omitempty"`

	// StepIndex is the index of the active step while Status is editing.
	StepIndex int    `json:"step_index"`
	Status    Status `json:"status"`

	Fields    FieldSet        `json:"fields"`
	Touched   map[string]bool `json:"touched,omitempty"`
	Errors    FieldErrors     `json:"errors,omitempty"`
	Completed map[int]bool    `json:"completed,omitempty"`

	// Dirty lists the keys that differ from the hydrated record.
	Dirty []string `json:"dirty,omitempty"`

	// Options holds the cascading/reference option sets by options key.
	Options map[string][]Option `json:"options,omitempty"`

	// Results holds the latest search results by picker field.
	Results map[string][]Entity `json:"-"`
}

// StepIndicator summarises the step sequence for rendering.
type StepIndicator struct {
	Index       int        `json:"index"`
	ID          StepID     `json:"id"`
	DisplayName string     `json:"display_name"`
	Status      StepStatus `json:"status"`
	Reachable   bool       `json:"reachable"`
}
