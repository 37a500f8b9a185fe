package authorization

import (
	"fmt"
	"time"
)

// Validation issue codes. Errors block recording; warnings never do.
const (
	CodeAuthNotFound    = "AUTH_NOT_FOUND"
	CodeAuthExpired     = "AUTH_EXPIRED"
	CodeVisitsExhausted = "VISITS_EXHAUSTED"
	CodeDateOutOfRange  = "DATE_OUT_OF_RANGE"

	CodeExpirySoon        = "EXPIRY_SOON"
	CodeVisitsLow         = "VISITS_LOW"
	CodeCPTNotAuthorized  = "CPT_NOT_AUTHORIZED"
	CodeAuthNotApproved   = "AUTH_NOT_APPROVED"
)

// Remaining-visit count at or below which a VISITS_LOW warning fires, and
// the expiry window that triggers EXPIRY_SOON.
const (
	lowVisitThreshold = 3
	expirySoonWindow  = 7 * 24 * time.Hour
)

// ValidationIssue is one error or warning from visit validation.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating a proposed visit. It is a
// value, not an error: callers inspect it and decide, and RecordVisitUsage
// wraps it in a RecordingError only when errors are present. The remaining
// quota and days to expiry are populated whenever the authorization exists,
// pass or fail, so callers can display them alongside any issues.
type ValidationResult struct {
	Errors          []ValidationIssue `json:"errors,omitempty"`
	Warnings        []ValidationIssue `json:"warnings,omitempty"`
	VisitsRemaining int               `json:"visits_remaining"`
	DaysUntilExpiry *int              `json:"days_until_expiry,omitempty"`
}

// OK reports whether the visit may be recorded.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// ErrorCodes returns the blocking codes in order.
func (r ValidationResult) ErrorCodes() []string {
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return codes
}

// HasWarning reports whether a warning with the given code is present.
func (r ValidationResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func (r *ValidationResult) addError(code, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarning(code, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationIssue{Code: code, Message: fmt.Sprintf(format, args...)})
}

// VisitRequest is a proposed visit to validate or record.
type VisitRequest struct {
	AuthorizationID string    `json:"authorization_id"`
	VisitDate       time.Time `json:"visit_date"`
	CPTCode         string    `json:"cpt_code,omitempty"`
	ProviderNPI     string    `json:"provider_npi,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// ValidateVisit checks a proposed visit against the authorization as of
// now. The function is pure: it never mutates the authorization.
func ValidateVisit(auth *Authorization, req VisitRequest, now time.Time) ValidationResult {
	var result ValidationResult
	if auth == nil {
		result.addError(CodeAuthNotFound, "authorization %s not found", req.AuthorizationID)
		return result
	}

	result.VisitsRemaining = auth.VisitsRemaining()
	if !auth.EndDate.IsZero() {
		days := int(auth.EndDate.Sub(now).Hours() / 24)
		result.DaysUntilExpiry = &days
	}

	if auth.Status == StatusExpired || (!auth.EndDate.IsZero() && now.After(auth.EndDate)) {
		result.addError(CodeAuthExpired, "authorization expired %s", auth.EndDate.Format("2006-01-02"))
	}
	// A zero-visit quota never exhausts; only a granted quota can run out.
	if auth.VisitsApproved > 0 && auth.VisitsRemaining() == 0 {
		result.addError(CodeVisitsExhausted, "all %d approved visits used", auth.VisitsApproved)
	}
	if !req.VisitDate.IsZero() {
		if req.VisitDate.Before(auth.StartDate) || (!auth.EndDate.IsZero() && req.VisitDate.After(auth.EndDate)) {
			result.addError(CodeDateOutOfRange, "visit date %s outside authorization window %s to %s",
				req.VisitDate.Format("2006-01-02"),
				auth.StartDate.Format("2006-01-02"),
				auth.EndDate.Format("2006-01-02"))
		}
	}

	if auth.Status != StatusApproved && auth.Status != StatusExhausted && auth.Status != StatusExpired {
		result.addWarning(CodeAuthNotApproved, "authorization status is %s", auth.Status)
	}
	if !auth.EndDate.IsZero() {
		if until := auth.EndDate.Sub(now); until >= 0 && until <= expirySoonWindow {
			result.addWarning(CodeExpirySoon, "authorization expires %s", auth.EndDate.Format("2006-01-02"))
		}
	}
	if remaining := auth.VisitsRemaining(); remaining >= 1 && remaining <= lowVisitThreshold {
		result.addWarning(CodeVisitsLow, "%d visits remaining", remaining)
	}
	if req.CPTCode != "" && len(auth.CPTCodes) > 0 && !auth.AllowsCPT(req.CPTCode) {
		result.addWarning(CodeCPTNotAuthorized, "CPT %s is not on the authorized code list", req.CPTCode)
	}

	return result
}
