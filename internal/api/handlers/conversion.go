// Package handlers provides HTTP handlers for the gateway API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/claimspring/go-pax/internal/api/middleware"
	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
	"github.com/claimspring/go-pax/internal/x12fhir"
)

const fhirJSONContentType = "application/fhir+json"

// ConversionHandler handles X12 278 to FHIR conversion endpoints.
type ConversionHandler struct {
	inbound  *x12fhir.X12ToFHIRMapper
	outbound *x12fhir.FHIRToX12Mapper
	logger   *zap.Logger
}

// NewConversionHandler creates a new handler.
func NewConversionHandler(outbound *x12fhir.FHIRToX12Mapper, logger *zap.Logger) *ConversionHandler {
	return &ConversionHandler{
		inbound:  x12fhir.NewX12ToFHIRMapper(),
		outbound: outbound,
		logger:   logger,
	}
}

// Routes returns the handler routes.
func (h *ConversionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/x12-to-fhir", h.X12ToFHIR)
	r.Post("/fhir-to-x12", h.FHIRToX12)
	r.Post("/acknowledge", h.Acknowledge)
	return r
}

// ConversionResponse wraps a converted Claim with its warnings.
type ConversionResponse struct {
	Claim    *r4.Claim                   `json:"claim"`
	Warnings []x12fhir.ConversionWarning `json:"warnings,omitempty"`
}

// X12ToFHIR handles POST /conversions/x12-to-fhir. The body is the raw
// X12 interchange.
func (h *ConversionHandler) X12ToFHIR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("conversion-handler")
	ctx, span := tracer.Start(ctx, "x12_to_fhir")
	defer span.End()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.jsonError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	tx, err := edi278.Parse(string(raw))
	if err != nil {
		h.logger.Warn("x12 parse failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(ctx)))
		h.jsonError(w, "malformed X12: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	result, err := h.inbound.MapRequestToClaim(tx)
	if err != nil {
		h.logger.Warn("x12 mapping failed", zap.Error(err))
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	span.SetAttributes(
		attribute.String("claim_id", result.Claim.ID),
		attribute.Int("warnings", len(result.Warnings)),
	)

	for _, warning := range result.Warnings {
		h.logger.Info("conversion warning",
			zap.String("claim_id", result.Claim.ID),
			zap.String("field", warning.Field),
			zap.String("code", warning.Code))
	}

	w.Header().Set("Content-Type", fhirJSONContentType)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ConversionResponse{Claim: result.Claim, Warnings: result.Warnings})
}

// FHIRToX12 handles POST /conversions/fhir-to-x12. The body is a Claim.
func (h *ConversionHandler) FHIRToX12(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("conversion-handler")
	_, span := tracer.Start(ctx, "fhir_to_x12")
	defer span.End()

	var claim r4.Claim
	if err := json.NewDecoder(r.Body).Decode(&claim); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.outbound.MapClaimToRequest(&claim)
	if err != nil {
		h.logger.Warn("fhir mapping failed", zap.Error(err))
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	span.SetAttributes(attribute.String("claim_id", claim.ID))

	w.Header().Set("Content-Type", "application/edi-x12")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, edi278.Format(tx))
}

// AcknowledgeRequest carries the response to acknowledge and the control
// number of the group it answers.
type AcknowledgeRequest struct {
	ClaimResponse        *r4.ClaimResponse `json:"claimResponse"`
	OriginalGroupControl string            `json:"originalGroupControl"`
}

// Acknowledge handles POST /conversions/acknowledge, producing the 997
// functional acknowledgment for a processed response.
func (h *ConversionHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClaimResponse == nil {
		h.jsonError(w, "claimResponse is required", http.StatusBadRequest)
		return
	}

	tx, err := h.outbound.MapResponseToAck(req.ClaimResponse, req.OriginalGroupControl)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/edi-x12")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, edi278.Format(tx))
}

func (h *ConversionHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
