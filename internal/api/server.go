package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hireloop/hireloop/internal/candidates"
	"github.com/hireloop/hireloop/internal/chat"
	"github.com/hireloop/hireloop/internal/enrich"
	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
)

type Server struct {
	Store      *store.Store
	Hub        *realtime.Hub
	Chat       *chat.Service
	Candidates *candidates.Service
	Enrich     *enrich.Scheduler

	// MaxChatMessage caps the length of a single user message; zero means
	// no cap.
	MaxChatMessage int

	validate *validator.Validate
}

func (s *Server) Handler() http.Handler {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/jobs/", s.handleJobItem)
	mux.HandleFunc("/api/ws", s.handleWS)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleJobItem(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" {
		writeError(w, http.StatusNotFound, errNotFound("job resource"))
		return
	}
	jobID := segments[0]

	switch segments[1] {
	case "chat":
		s.handleChat(w, r, user, jobID)
	case "customfields":
		s.handleCustomFields(w, r, user, jobID)
	case "candidates":
		s.handleCandidates(w, r, user, jobID, segments[2:])
	default:
		writeError(w, http.StatusNotFound, errNotFound("job resource"))
	}
}

// authenticate resolves the bearer session token into a user. Every job
// route requires it; /api/ws takes the token as a query parameter as well
// since browser WebSocket clients cannot set headers.
func (s *Server) authenticate(r *http.Request) (store.User, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return store.User{}, errors.New("missing session token")
	}
	user, err := s.Store.UserBySessionToken(r.Context(), token)
	if err != nil {
		return store.User{}, errors.New("invalid session token")
	}
	return user, nil
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user store.User, jobID string) {
	switch r.Method {
	case http.MethodPost:
		var payload chatRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(payload.Message) == "" {
			writeError(w, http.StatusBadRequest, errors.New("message is required"))
			return
		}
		if s.MaxChatMessage > 0 && len(payload.Message) > s.MaxChatMessage {
			writeError(w, http.StatusBadRequest, errors.New("message too long"))
			return
		}
		// The turn keeps running if the client goes away; its results land
		// in the store and on the live channel either way.
		ctx := context.WithoutCancel(r.Context())
		response, err := s.Chat.SendMessage(ctx, user, jobID, payload.Message)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": response})
	case http.MethodGet:
		chatRow, messages, err := s.Chat.History(r.Context(), user, jobID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chat": chatRow, "messages": messages})
	case http.MethodDelete:
		if err := s.Chat.Delete(r.Context(), user, jobID); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

type customFieldRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Description string `json:"description" validate:"required,min=1,max=1000"`
	Type        string `json:"type" validate:"required,oneof=boolean number date text"`
}

func (s *Server) handleCustomFields(w http.ResponseWriter, r *http.Request, user store.User, jobID string) {
	switch r.Method {
	case http.MethodPost:
		var payload customFieldRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		job, err := s.Store.GetOwnedJob(r.Context(), jobID, user.OrganizationHandle)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		field, err := s.Store.CreateCustomField(r.Context(), job.ID, payload.Name, payload.Description, store.FieldType(payload.Type))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.broadcastFieldCreated(r.Context(), job, field)

		// Enrichment outlives the request; existing candidates get their
		// values filled in batches in the background.
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := s.Enrich.RunForJob(ctx, job, field); err != nil {
				log.Printf("enrich: job %s field %s: %v", job.ID, field.ID, err)
			}
		}()

		writeJSON(w, http.StatusCreated, field)
	case http.MethodGet:
		job, err := s.Store.GetOwnedJob(r.Context(), jobID, user.OrganizationHandle)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		fields, err := s.Store.ListCustomFields(r.Context(), job.ID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fields)
	default:
		writeMethodNotAllowed(w)
	}
}

func (s *Server) broadcastFieldCreated(ctx context.Context, job store.Job, field store.CustomField) {
	userIDs, err := s.Store.OrganizationUserIDs(ctx, job.OwnerOrganizationHandle)
	if err != nil || len(userIDs) == 0 {
		return
	}
	s.Hub.BroadcastToUsers(userIDs, realtime.Envelope{
		MessageType: realtime.Topic(job.ID, realtime.KindCustomFieldCreated),
		Data: map[string]any{
			"customField": field,
			"jobId":       job.ID,
		},
	})
}

type candidateRequest struct {
	ProfileHandle string `json:"profile_handle" validate:"required,min=1,max=200"`
	MatchScore    int    `json:"match_score" validate:"min=0,max=100"`
	Reasoning     string `json:"reasoning" validate:"max=2000"`
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request, user store.User, jobID string, rest []string) {
	if len(rest) > 0 {
		s.handleCandidateItem(w, r, user, jobID, rest)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var payload candidateRequest
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.validate.Struct(payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if _, err := s.Store.GetOwnedJob(r.Context(), jobID, user.OrganizationHandle); err != nil {
			writeStoreError(w, err)
			return
		}
		candidate, created, err := s.Candidates.Add(r.Context(), candidates.AddInput{
			JobID:      jobID,
			Handle:     payload.ProfileHandle,
			MatchScore: payload.MatchScore,
			Reasoning:  payload.Reasoning,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, candidate)
	case http.MethodGet:
		if _, err := s.Store.GetOwnedJob(r.Context(), jobID, user.OrganizationHandle); err != nil {
			writeStoreError(w, err)
			return
		}
		items, err := s.Store.ListCandidates(r.Context(), jobID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCandidateItem covers /candidates/{candidateId}/applied, which records
// that the candidate applied to the job.
func (s *Server) handleCandidateItem(w http.ResponseWriter, r *http.Request, user store.User, jobID string, rest []string) {
	if len(rest) != 2 || rest[0] == "" || rest[1] != "applied" {
		writeError(w, http.StatusNotFound, errNotFound("candidate resource"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	job, err := s.Store.GetOwnedJob(r.Context(), jobID, user.OrganizationHandle)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.Store.MarkApplied(r.Context(), job.ID, rest[0]); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeStoreError maps the store's sentinel errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}
