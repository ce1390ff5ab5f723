package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prepvoice/prepvoice/internal/interview"
)

// maxAnswerBytes bounds the raw audio payload of one answer.
const maxAnswerBytes = 25 << 20

// Orchestrator is the session lifecycle surface the handlers call.
type Orchestrator interface {
	Start(ctx context.Context, ownerID string, profile interview.Profile) (*interview.Session, error)
	Begin(ctx context.Context, id string) (*interview.Session, error)
	FirstQuestion(ctx context.Context, id string) (*interview.QuestionResult, error)
	NextQuestion(ctx context.Context, id string) (*interview.QuestionResult, error)
	SubmitAnswer(ctx context.Context, id string, audio []byte) (*interview.AnswerResult, error)
	End(ctx context.Context, id string) (*interview.Summary, error)
	Cancel(ctx context.Context, id string) (*interview.Session, error)
	GetSummary(ctx context.Context, id string) (*interview.Summary, error)
	ListMine(ctx context.Context, ownerID string) ([]*interview.Session, error)
}

// RequestRecorder counts finished requests per operation.
type RequestRecorder interface {
	RecordRequest(operation string, statusCode int)
}

type startRequest struct {
	Company       string `json:"company"`
	Role          string `json:"role"`
	Experience    string `json:"experience"`
	InterviewType string `json:"interviewType"`
	FocusArea     string `json:"focusArea"`
	QuestionLimit int    `json:"questionLimit"`
}

type questionResponse struct {
	QuestionText   string `json:"questionText"`
	Audio          []byte `json:"audio,omitempty"`
	CurrentNumber  int    `json:"currentNumber"`
	TotalQuestions int    `json:"totalQuestions"`
}

type sessionListItem struct {
	ID            string             `json:"id"`
	Company       string             `json:"company"`
	Role          string             `json:"role"`
	InterviewType string             `json:"interviewType"`
	Experience    string             `json:"experience"`
	Summary       *interview.Summary `json:"summary"`
	CreatedAt     time.Time          `json:"createdAt"`
}

func registerAPIRoutes(mux *http.ServeMux, orch Orchestrator, auth Authenticator, rl *RateLimiter, rec RequestRecorder) {
	handle := func(method, pattern, operation string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+pattern, instrument(rec, operation, requireAuth(auth, rateLimited(rl, h))))
	}

	handle("POST", "/api/interviews", "start", func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		sess, err := orch.Start(r.Context(), ownerFromContext(r.Context()), interview.Profile{
			Company:       req.Company,
			Role:          req.Role,
			Experience:    req.Experience,
			InterviewType: req.InterviewType,
			FocusArea:     req.FocusArea,
			QuestionLimit: req.QuestionLimit,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sess.ID})
	})

	handle("POST", "/api/interviews/{id}/begin", "begin", func(w http.ResponseWriter, r *http.Request) {
		if _, err := orch.Begin(r.Context(), r.PathValue("id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	handle("POST", "/api/interviews/{id}/first-question", "first_question", func(w http.ResponseWriter, r *http.Request) {
		result, err := orch.FirstQuestion(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeQuestion(w, result)
	})

	handle("POST", "/api/interviews/{id}/next-question", "next_question", func(w http.ResponseWriter, r *http.Request) {
		result, err := orch.NextQuestion(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeQuestion(w, result)
	})

	handle("POST", "/api/interviews/{id}/answer", "answer", func(w http.ResponseWriter, r *http.Request) {
		audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAnswerBytes))
		if err != nil {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "audio payload too large")
			return
		}

		result, err := orch.SubmitAnswer(r.Context(), r.PathValue("id"), audio)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"answerText":   result.AnswerText,
			"readyForNext": result.ReadyForNext,
		})
	})

	handle("POST", "/api/interviews/{id}/end", "end", func(w http.ResponseWriter, r *http.Request) {
		summary, err := orch.End(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
	})

	handle("POST", "/api/interviews/{id}/cancel", "cancel", func(w http.ResponseWriter, r *http.Request) {
		if _, err := orch.Cancel(r.Context(), r.PathValue("id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	handle("GET", "/api/interviews/{id}/summary", "get_summary", func(w http.ResponseWriter, r *http.Request) {
		summary, err := orch.GetSummary(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
	})

	handle("GET", "/api/interviews", "list_mine", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := orch.ListMine(r.Context(), ownerFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		items := make([]sessionListItem, 0, len(sessions))
		for _, sess := range sessions {
			items = append(items, sessionListItem{
				ID:            sess.ID,
				Company:       sess.Profile.Company,
				Role:          sess.Profile.Role,
				InterviewType: sess.Profile.InterviewType,
				Experience:    sess.Profile.Experience,
				Summary:       sess.Summary,
				CreatedAt:     sess.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": items})
	})
}

func writeQuestion(w http.ResponseWriter, result *interview.QuestionResult) {
	if result.Finished {
		writeJSON(w, http.StatusOK, map[string]bool{"isFinished": true})
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{
		QuestionText:   result.QuestionText,
		Audio:          result.Audio,
		CurrentNumber:  result.CurrentNumber,
		TotalQuestions: result.TotalQuestions,
	})
}

// writeDomainError maps orchestrator errors onto the API contract.
// Provider failures never reach this point; they are absorbed into
// fallbacks upstream. Anything unrecognized is a generic server fault
// with no internal detail leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "interview not found")
	case errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrOutOfOrder), errors.Is(err, interview.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interview.ErrSummaryNotReady):
		writeJSONError(w, http.StatusConflict, "summary not generated yet")
	default:
		log.Printf("internal error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func instrument(rec RequestRecorder, operation string, next http.HandlerFunc) http.HandlerFunc {
	if rec == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		rec.RecordRequest(operation, sw.status)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
