package interview

import "time"

// Status is the session lifecycle state. It only moves forward:
// created -> in-progress -> completing -> completed, with cancelled
// reachable from any non-terminal state.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in-progress"
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Speaker tags one transcript turn. Only two variants exist.
type Speaker string

const (
	SpeakerAI   Speaker = "ai"
	SpeakerUser Speaker = "user"
)

// Turn is one utterance in the transcript. Immutable once appended.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Profile holds the descriptive fields fixed at session creation.
type Profile struct {
	Company       string `json:"company"`
	Role          string `json:"role"`
	Experience    string `json:"experience"`
	InterviewType string `json:"interviewType"`
	FocusArea     string `json:"focusArea,omitempty"`
	QuestionLimit int    `json:"questionLimit"`
}

// Summary is the structured end-of-session feedback. All fields are
// always populated after generation; the generator guarantees the shape
// even when the provider fails.
type Summary struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Improvements    []string `json:"improvements"`
	TopicsToWorkOn  []string `json:"topicsToWorkOn"`
	OverallFeedback string   `json:"overallFeedback"`
}

// Session is the aggregate root. It is the single source of truth for a
// mock interview run; orchestration operations reload it fresh on every
// call and never cache it across calls.
type Session struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"ownerId"`
	Profile       Profile    `json:"profile"`
	Status        Status     `json:"status"`
	Transcript    []Turn     `json:"transcript"`
	QuestionCount int        `json:"questionCount"`
	Summary       *Summary   `json:"summary,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletingAt  *time.Time `json:"completingAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Validate checks the required profile fields for session creation.
func (p Profile) Validate() error {
	switch {
	case p.Company == "":
		return ErrMissingField("company")
	case p.Role == "":
		return ErrMissingField("role")
	case p.Experience == "":
		return ErrMissingField("experience")
	case p.InterviewType == "":
		return ErrMissingField("interviewType")
	case p.QuestionLimit <= 0:
		return ErrMissingField("questionLimit")
	}
	return nil
}
