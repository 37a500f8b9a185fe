package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/claimspring/go-pax/internal/api/middleware"
	"github.com/claimspring/go-pax/internal/domain/authorization"
)

// AuthorizationHandler handles authorization lifecycle endpoints.
type AuthorizationHandler struct {
	service *authorization.Service
	store   authorization.Store
	logger  *zap.Logger
}

// NewAuthorizationHandler creates a new handler.
func NewAuthorizationHandler(service *authorization.Service, store authorization.Store, logger *zap.Logger) *AuthorizationHandler {
	return &AuthorizationHandler{service: service, store: store, logger: logger}
}

// Routes returns the handler routes.
func (h *AuthorizationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/stats", h.Stats)
	r.Post("/{id}/visits/validate", h.ValidateVisit)
	r.Post("/{id}/visits", h.RecordVisit)
	r.Get("/{id}/visits", h.ListVisits)
	r.Get("/{id}/tasks", h.ListTasks)
	r.Post("/{id}/tasks", h.CreateTask)
	return r
}

// TaskRoutes returns routes addressed by task ID.
func (h *AuthorizationHandler) TaskRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{taskID}/escalate", h.EscalateTask)
	r.Post("/{taskID}/complete", h.CompleteTask)
	r.Post("/{taskID}/progress", h.TaskProgress)
	return r
}

// CreateAuthorizationRequest is the request body for creating an
// authorization.
type CreateAuthorizationRequest struct {
	AuthNumber     string    `json:"auth_number"`
	PatientID      string    `json:"patient_id"`
	ProviderNPI    string    `json:"provider_npi"`
	PayerID        string    `json:"payer_id"`
	Urgency        string    `json:"urgency,omitempty"`
	VisitsApproved int       `json:"visits_approved"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	CPTCodes       []string  `json:"cpt_codes,omitempty"`
}

// Create handles POST /authorizations.
func (h *AuthorizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("authorization-handler")
	ctx, span := tracer.Start(ctx, "create_authorization")
	defer span.End()

	var req CreateAuthorizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" || req.ProviderNPI == "" {
		h.jsonError(w, "patient_id and provider_npi are required", http.StatusBadRequest)
		return
	}
	if req.VisitsApproved < 0 {
		h.jsonError(w, "visits_approved cannot be negative", http.StatusBadRequest)
		return
	}

	urgency := authorization.Urgency(req.Urgency)
	if urgency == "" {
		urgency = authorization.UrgencyRoutine
	}

	now := time.Now().UTC()
	auth := &authorization.Authorization{
		ID:             uuid.New().String(),
		AuthNumber:     req.AuthNumber,
		PatientID:      req.PatientID,
		ProviderNPI:    req.ProviderNPI,
		PayerID:        req.PayerID,
		Status:         authorization.StatusPending,
		Urgency:        urgency,
		VisitsApproved: req.VisitsApproved,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CPTCodes:       req.CPTCodes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	span.SetAttributes(attribute.String("authorization_id", auth.ID))

	if err := h.store.CreateAuthorization(ctx, auth); err != nil {
		h.logger.Error("create authorization failed", zap.Error(err))
		h.jsonError(w, "failed to create authorization", http.StatusInternalServerError)
		return
	}

	h.logger.Info("authorization created",
		zap.String("id", auth.ID),
		zap.String("request_id", middleware.GetRequestID(ctx)),
		zap.String("urgency", string(urgency)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(auth)
}

// Get handles GET /authorizations/{id}.
func (h *AuthorizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	auth, err := h.store.GetAuthorization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auth)
}

// Stats handles GET /authorizations/{id}/stats.
func (h *AuthorizationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetVisitUsageStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// VisitBody is the request body for validating or recording a visit.
type VisitBody struct {
	VisitDate   time.Time `json:"visit_date"`
	CPTCode     string    `json:"cpt_code,omitempty"`
	ProviderNPI string    `json:"provider_npi,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func (h *AuthorizationHandler) visitRequest(r *http.Request) (authorization.VisitRequest, error) {
	var body VisitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return authorization.VisitRequest{}, err
	}
	return authorization.VisitRequest{
		AuthorizationID: chi.URLParam(r, "id"),
		VisitDate:       body.VisitDate,
		CPTCode:         body.CPTCode,
		ProviderNPI:     body.ProviderNPI,
		Notes:           body.Notes,
	}, nil
}

// ValidateVisit handles POST /authorizations/{id}/visits/validate.
func (h *AuthorizationHandler) ValidateVisit(w http.ResponseWriter, r *http.Request) {
	req, err := h.visitRequest(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ValidateVisitUsage(r.Context(), req)
	if err != nil {
		h.logger.Error("validation failed", zap.Error(err))
		h.jsonError(w, "validation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// RecordVisit handles POST /authorizations/{id}/visits.
func (h *AuthorizationHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("authorization-handler")
	ctx, span := tracer.Start(ctx, "record_visit")
	defer span.End()

	req, err := h.visitRequest(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("authorization_id", req.AuthorizationID))

	result, err := h.service.RecordVisitUsage(ctx, req)
	if err != nil {
		var recording *authorization.RecordingError
		if errors.As(err, &recording) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"error":      "visit recording blocked",
				"validation": recording.Result,
			})
			return
		}
		h.logger.Error("record visit failed", zap.Error(err))
		h.jsonError(w, "failed to record visit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// ListVisits handles GET /authorizations/{id}/visits.
func (h *AuthorizationHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.store.ListVisits(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "failed to list visits", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visits)
}

// ListTasks handles GET /authorizations/{id}/tasks.
func (h *AuthorizationHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.ListTasks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, "failed to list tasks", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// CreateTaskRequest is the request body for creating a task. Priority,
// title and description are optional overrides of the derived defaults.
type CreateTaskRequest struct {
	Type        string `json:"type"`
	Priority    string `json:"priority,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateTask handles POST /authorizations/{id}/tasks.
func (h *AuthorizationHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.service.CreateTask(r.Context(), chi.URLParam(r, "id"),
		authorization.TaskType(req.Type), authorization.TaskOptions{
			Priority:    authorization.Priority(req.Priority),
			Title:       req.Title,
			Description: req.Description,
		})
	if err != nil {
		var notFound *authorization.NotFoundError
		if errors.As(err, &notFound) {
			h.jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

// EscalateTask handles POST /tasks/{taskID}/escalate.
func (h *AuthorizationHandler) EscalateTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.EscalateTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.taskError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// CompleteTask handles POST /tasks/{taskID}/complete.
func (h *AuthorizationHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.CompleteTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.taskError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// TaskProgressRequest is the request body for updating task progress.
type TaskProgressRequest struct {
	PercentComplete int `json:"percent_complete"`
}

// TaskProgress handles POST /tasks/{taskID}/progress.
func (h *AuthorizationHandler) TaskProgress(w http.ResponseWriter, r *http.Request) {
	var req TaskProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	task, err := h.store.GetTask(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		h.taskError(w, err)
		return
	}
	if err := task.SetProgress(req.PercentComplete); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateTask(ctx, task); err != nil {
		h.taskError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

func (h *AuthorizationHandler) taskError(w http.ResponseWriter, err error) {
	var notFound *authorization.NotFoundError
	if errors.As(err, &notFound) {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.jsonError(w, err.Error(), http.StatusBadRequest)
}

func (h *AuthorizationHandler) notFoundOr500(w http.ResponseWriter, err error) {
	var notFound *authorization.NotFoundError
	if errors.As(err, &notFound) {
		h.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.jsonError(w, "internal error", http.StatusInternalServerError)
}

func (h *AuthorizationHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
