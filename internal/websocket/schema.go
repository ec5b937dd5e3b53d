package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload is the superset message read off the stream; Action selects
// which fields are meaningful.
type RequestPayload struct {
	Action Action `json:"action"`

	// Autosave
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`

	// Violation
	Kind    string `json:"kind,omitempty"`
	Payload string `json:"payload,omitempty"` // Client event detail as a JSON string

	// Submit
	Answers map[string]string `json:"answers,omitempty"` // Optional final overlay
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventReported  Event = "reported"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// ReportedResponse acknowledges a violation report. The counter value is not
// echoed back: the increment happens asynchronously in the worker, and the
// client learns the count from the state endpoint.
type ReportedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// SubmittedResponse confirms the terminal transition. Score is null while
// essay items await grading.
type SubmittedResponse struct {
	Event         Event    `json:"event"`
	Status        string   `json:"status"`
	Score         *float64 `json:"score"`
	Passed        *bool    `json:"passed"`
	AutoSubmitted bool     `json:"auto_submitted"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
