package authorization

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func approvedAuth() *Authorization {
	return &Authorization{
		ID:             "auth-1",
		AuthNumber:     "PA-2026-0042",
		PatientID:      "MEMBER001",
		ProviderNPI:    "1234567890",
		PayerID:        "ACME",
		Status:         StatusApproved,
		Urgency:        UrgencyRoutine,
		VisitsApproved: 12,
		VisitsUsed:     4,
		StartDate:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		CPTCodes:       []string{"97110", "97140"},
		CreatedAt:      time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestValidateVisitClean(t *testing.T) {
	result := ValidateVisit(approvedAuth(), VisitRequest{
		AuthorizationID: "auth-1",
		VisitDate:       testNow,
		CPTCode:         "97110",
	}, testNow)

	if !result.OK() {
		t.Fatalf("errors = %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", result.Warnings)
	}
}

func TestValidateVisitBlockingErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Authorization, *VisitRequest)
		wantCode string
	}{
		{
			"expired by date",
			func(a *Authorization, r *VisitRequest) { a.EndDate = testNow.AddDate(0, 0, -1) },
			CodeAuthExpired,
		},
		{
			"expired by status",
			func(a *Authorization, r *VisitRequest) { a.Status = StatusExpired },
			CodeAuthExpired,
		},
		{
			"exhausted",
			func(a *Authorization, r *VisitRequest) { a.VisitsUsed = a.VisitsApproved },
			CodeVisitsExhausted,
		},
		{
			"visit before window",
			func(a *Authorization, r *VisitRequest) { r.VisitDate = a.StartDate.AddDate(0, 0, -1) },
			CodeDateOutOfRange,
		},
		{
			"visit after window",
			func(a *Authorization, r *VisitRequest) { r.VisitDate = a.EndDate.AddDate(0, 0, 1) },
			CodeDateOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := approvedAuth()
			req := VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}
			tt.mutate(auth, &req)

			result := ValidateVisit(auth, req, testNow)
			if result.OK() {
				t.Fatal("expected blocking error")
			}
			found := false
			for _, code := range result.ErrorCodes() {
				if code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("codes = %v, want %s", result.ErrorCodes(), tt.wantCode)
			}
		})
	}
}

func TestValidateVisitZeroQuota(t *testing.T) {
	auth := approvedAuth()
	auth.VisitsApproved = 0
	auth.VisitsUsed = 0

	result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
	if !result.OK() {
		t.Fatalf("zero quota must not block: %v", result.Errors)
	}
	for _, code := range result.ErrorCodes() {
		if code == CodeVisitsExhausted {
			t.Error("VISITS_EXHAUSTED raised with no visits authorized")
		}
	}
}

func TestValidateVisitReportsQuotaAndExpiry(t *testing.T) {
	auth := approvedAuth() // 12 approved, 4 used, ends 2026-06-30

	result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
	if result.VisitsRemaining != 8 {
		t.Errorf("visits remaining = %d, want 8", result.VisitsRemaining)
	}
	if result.DaysUntilExpiry == nil || *result.DaysUntilExpiry != 111 {
		t.Errorf("days until expiry = %v, want 111", result.DaysUntilExpiry)
	}

	// The counters survive a blocking failure.
	auth.VisitsUsed = auth.VisitsApproved
	result = ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
	if result.OK() {
		t.Fatal("expected blocking error")
	}
	if result.VisitsRemaining != 0 || result.DaysUntilExpiry == nil {
		t.Errorf("result = %+v, want counters populated on failure", result)
	}
}

func TestValidateVisitMissingAuth(t *testing.T) {
	result := ValidateVisit(nil, VisitRequest{AuthorizationID: "nope"}, testNow)
	if result.OK() || result.ErrorCodes()[0] != CodeAuthNotFound {
		t.Errorf("result = %+v", result)
	}
}

func TestValidateVisitWarnings(t *testing.T) {
	t.Run("expiry soon", func(t *testing.T) {
		auth := approvedAuth()
		auth.EndDate = testNow.AddDate(0, 0, 5)
		result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
		if !result.OK() {
			t.Fatalf("errors = %v", result.Errors)
		}
		if !result.HasWarning(CodeExpirySoon) {
			t.Errorf("warnings = %v, want EXPIRY_SOON", result.Warnings)
		}
	})

	t.Run("expiry beyond window is quiet", func(t *testing.T) {
		auth := approvedAuth()
		auth.EndDate = testNow.AddDate(0, 0, 8)
		result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
		if result.HasWarning(CodeExpirySoon) {
			t.Error("EXPIRY_SOON fired 8 days out")
		}
	})

	t.Run("visits low boundary", func(t *testing.T) {
		for used, want := range map[int]bool{8: false, 9: true, 11: true} {
			auth := approvedAuth()
			auth.VisitsUsed = used // 12 approved: remaining 4 silent, 3 and 1 warn
			result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
			if got := result.HasWarning(CodeVisitsLow); got != want {
				t.Errorf("used=%d VISITS_LOW=%v, want %v", used, got, want)
			}
		}
	})

	t.Run("cpt not authorized", func(t *testing.T) {
		auth := approvedAuth()
		result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow, CPTCode: "99999"}, testNow)
		if !result.OK() {
			t.Fatalf("CPT mismatch must warn, not block: %v", result.Errors)
		}
		if !result.HasWarning(CodeCPTNotAuthorized) {
			t.Errorf("warnings = %v, want CPT_NOT_AUTHORIZED", result.Warnings)
		}
	})

	t.Run("not approved", func(t *testing.T) {
		auth := approvedAuth()
		auth.Status = StatusPending
		result := ValidateVisit(auth, VisitRequest{AuthorizationID: auth.ID, VisitDate: testNow}, testNow)
		if !result.OK() {
			t.Fatalf("pending status must warn, not block: %v", result.Errors)
		}
		if !result.HasWarning(CodeAuthNotApproved) {
			t.Errorf("warnings = %v, want AUTH_NOT_APPROVED", result.Warnings)
		}
	})
}
