package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/hmuroya/taskward/internal/service"
	"github.com/hmuroya/taskward/internal/subscription"
	"github.com/hmuroya/taskward/internal/task"
	"github.com/hmuroya/taskward/pkg/cerr"
)

// actorFromRequest reads the acting identity from request headers. Identity
// is established by the upstream integration layer; the core trusts these
// headers behind the API key.
func actorFromRequest(r *http.Request) (task.Actor, error) {
	id := r.Header.Get("X-Actor-Id")
	if id == "" {
		return task.Actor{}, cerr.NewError(cerr.Unauthenticated, "missing X-Actor-Id header", nil)
	}
	actor := task.Actor{
		ID:          id,
		DisplayName: r.Header.Get("X-Actor-Name"),
	}
	if actor.DisplayName == "" {
		actor.DisplayName = id
	}
	if roles := r.Header.Get("X-Actor-Roles"); roles != "" {
		for _, role := range strings.Split(roles, ",") {
			if role = strings.TrimSpace(role); role != "" {
				actor.Roles = append(actor.Roles, role)
			}
		}
	}
	return actor, nil
}

type createTaskRequest struct {
	Name      string     `json:"name"`
	Notes     string     `json:"notes"`
	Category  string     `json:"category"`
	Urgency   string     `json:"urgency"`
	DueAt     *time.Time `json:"due_at"`
	RefTicket string     `json:"ref_ticket"`
	RefLink   string     `json:"ref_link"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromRequest(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.svc.Create(ctx, service.CreateTaskInput{
		Name:      req.Name,
		Notes:     req.Notes,
		Category:  task.Category(req.Category),
		Urgency:   task.Urgency(req.Urgency),
		DueAt:     req.DueAt,
		RefTicket: req.RefTicket,
		RefLink:   req.RefLink,
	}, actor)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.svc.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.svc.History(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"history": events})
}

func (s *Server) getTransitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	statuses, err := s.svc.NextStatuses(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"transitions": statuses})
}

func (s *Server) claimTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromRequest(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.svc.Claim(ctx, chi.URLParam(r, "id"), actor)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) unclaimTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromRequest(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.svc.Unclaim(ctx, chi.URLParam(r, "id"), actor)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type transitionRequest struct {
	Status     string `json:"status"`
	ReviewNote string `json:"review_note"`
}

func (s *Server) transitionTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFromRequest(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.svc.Transition(ctx, chi.URLParam(r, "id"), task.Status(req.Status), actor, req.ReviewNote)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.svc.RunMaintenanceSweep(ctx, time.Now())
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

type createSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	// Re-registering the same endpoint is a no-op.
	if existing, err := s.subRepo.FindByEndpoint(ctx, req.Endpoint); err == nil {
		cerr.SetJSONResponse(ctx, existing)
		return
	}
	sub := &subscription.Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		CreatedAt: time.Now(),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sub)
}
