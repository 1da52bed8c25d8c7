package model

import "encoding/json"

// EventType identifies the kind of progress stream event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Outcome is the terminal state of the retry loop.
type Outcome string

const (
	OutcomeSufficient Outcome = "sufficient"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeTimedOut   Outcome = "timed_out"
	OutcomeCancelled  Outcome = "cancelled"
)

// Note returns the human-readable suffix attached to partial results.
func (o Outcome) Note() string {
	switch o {
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeExhausted:
		return "max attempts reached"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Stats summarises a run's persistence outcome.
type Stats struct {
	Total    int `json:"total"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Event is one message on a run's progress stream. Only the fields relevant to
// Type are populated.
type Event struct {
	Type EventType

	// progress
	Step  int
	Total int

	// result
	Leads   []Lead
	ListID  string
	Stats   Stats
	Partial bool
	Outcome Outcome

	// progress, error, and optionally result
	Message string
}

// Terminal reports whether the event closes the stream.
func (e Event) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

// MarshalJSON renders the flat wire shape for each event type, e.g.
// {"type":"progress","step":1,"total":4,"message":"..."}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProgress:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Step    int       `json:"step"`
			Total   int       `json:"total"`
			Message string    `json:"message"`
		}{e.Type, e.Step, e.Total, e.Message})
	case EventResult:
		leads := e.Leads
		if leads == nil {
			leads = []Lead{}
		}
		var listID *string
		if e.ListID != "" {
			listID = &e.ListID
		}
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Leads   []Lead    `json:"leads"`
			ListID  *string   `json:"listId"`
			Stats   Stats     `json:"stats"`
			Partial bool      `json:"partial"`
			Outcome Outcome   `json:"outcome"`
			Message string    `json:"message,omitempty"`
		}{e.Type, leads, listID, e.Stats, e.Partial, e.Outcome, e.Message})
	default:
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}
}
