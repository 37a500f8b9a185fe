package x12fhir

import (
	"strings"
	"testing"
	"time"

	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
)

const sampleRequest = "ISA*00*          *00*          *ZZ*SUBMITTERID    *ZZ*PAYERID        *260115*0930*^*00501*000000101*0*P*:~" +
	"GS*HI*SUBMITTERID*PAYERID*20260115*0930*000000201*X*005010X217~" +
	"ST*278*000000301*005010X217~" +
	"BHT*0007*13*AUTH-REF-42*20260115*0930*RQ~" +
	"HL*1**20*1~" +
	"NM1*X3*2*ACME HEALTH PLAN*****PI*12345~" +
	"HL*2*1*21*1~" +
	"NM1*1P*1*SMITH*JANE****XX*1234567890~" +
	"HL*3*2*22*0~" +
	"NM1*QC*1*DOE*JOHN****MI*MEMBER001~" +
	"DTP*472*D8*20260120~" +
	"HI*ABF:M5412*ABF:G8918~" +
	"SE*11*000000301~" +
	"GE*1*000000201~" +
	"IEA*1*000000101~"

func parseRequest(t *testing.T, raw string) *edi278.Transaction {
	t.Helper()
	tx, err := edi278.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tx
}

func hasWarning(warnings []ConversionWarning, code string) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestMapRequestToClaim(t *testing.T) {
	mapper := NewX12ToFHIRMapper()
	result, err := mapper.MapRequestToClaim(parseRequest(t, sampleRequest))
	if err != nil {
		t.Fatalf("MapRequestToClaim: %v", err)
	}
	claim := result.Claim

	if claim.Use != r4.UsePreauthorization {
		t.Errorf("use = %q", claim.Use)
	}
	if got := claim.Patient.Reference; got != "Patient/MEMBER001" {
		t.Errorf("patient = %q", got)
	}
	if got := claim.Provider.Reference; got != "Practitioner/1234567890" {
		t.Errorf("provider = %q", got)
	}
	if got := claim.Insurer.Reference; got != "Organization/12345" {
		t.Errorf("insurer = %q", got)
	}
	if len(claim.Identifier) == 0 || claim.Identifier[0].Value != "AUTH-REF-42" {
		t.Errorf("identifier = %+v", claim.Identifier)
	}

	if len(claim.Diagnosis) != 2 {
		t.Fatalf("diagnosis count = %d, want 2", len(claim.Diagnosis))
	}
	if claim.Diagnosis[0].Sequence != 1 || claim.Diagnosis[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d", claim.Diagnosis[0].Sequence, claim.Diagnosis[1].Sequence)
	}
	if got := claim.DiagnosisCodes(); got[0] != "M5412" || got[1] != "G8918" {
		t.Errorf("diagnosis codes = %v, want wire order preserved", got)
	}

	if got := claim.PriorityCode(); got != r4.PriorityNormal {
		t.Errorf("priority = %q, want default normal", got)
	}
	if !hasWarning(result.Warnings, WarnPriorityDefaulted) {
		t.Error("missing priority default warning")
	}
	if !hasWarning(result.Warnings, WarnProceduresUnsupported) {
		t.Error("missing procedure warning")
	}
	if len(claim.Item) != 0 {
		t.Errorf("items = %d, want none", len(claim.Item))
	}

	if claim.BillablePeriod == nil || !claim.BillablePeriod.Start.Equal(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("billable period = %+v", claim.BillablePeriod)
	}

	if v := r4.ValidateClaim(claim); !v.Valid {
		t.Errorf("mapped claim fails validation: %v", v.Issues)
	}

	if result.IdempotencyKey == "" {
		t.Error("missing idempotency key")
	}
	again, err := mapper.MapRequestToClaim(parseRequest(t, sampleRequest))
	if err != nil {
		t.Fatalf("MapRequestToClaim replay: %v", err)
	}
	if again.IdempotencyKey != result.IdempotencyKey {
		t.Errorf("replayed request keys differ: %q vs %q", again.IdempotencyKey, result.IdempotencyKey)
	}
}

func TestMapRequestToClaimEmptyEntityID(t *testing.T) {
	raw := strings.Replace(sampleRequest,
		"NM1*QC*1*DOE*JOHN****MI*MEMBER001~", "NM1*QC*1*DOE*JOHN~", 1)

	mapper := NewX12ToFHIRMapper()
	result, err := mapper.MapRequestToClaim(parseRequest(t, raw))
	if err != nil {
		t.Fatalf("MapRequestToClaim: %v", err)
	}
	if got := result.Claim.Patient.Reference; got != "Patient/" {
		t.Errorf("patient = %q, want type-only reference", got)
	}
	if !hasWarning(result.Warnings, WarnEntityIDMissing) {
		t.Error("missing entity id warning")
	}
}

func TestMapRequestToClaimAdmissionDateFallback(t *testing.T) {
	raw := strings.Replace(sampleRequest,
		"DTP*472*D8*20260120~", "DTP*435*D8*20260118~", 1)

	mapper := NewX12ToFHIRMapper()
	result, err := mapper.MapRequestToClaim(parseRequest(t, raw))
	if err != nil {
		t.Fatalf("MapRequestToClaim: %v", err)
	}

	claim := result.Claim
	want := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)
	if claim.BillablePeriod == nil || !claim.BillablePeriod.Start.Equal(want) {
		t.Errorf("billable period = %+v, want admission date %v", claim.BillablePeriod, want)
	}
}

func TestMapRequestToClaimRejectsWrongSet(t *testing.T) {
	raw := strings.Replace(sampleRequest, "ST*278*", "ST*270*", 1)

	mapper := NewX12ToFHIRMapper()
	_, err := mapper.MapRequestToClaim(parseRequest(t, raw))
	mapErr, ok := err.(*MapError)
	if !ok {
		t.Fatalf("err = %v, want MapError", err)
	}
	if mapErr.Code != "WRONG_TRANSACTION_SET" {
		t.Errorf("code = %q", mapErr.Code)
	}
}

func TestMapRequestToClaimRejectsBrokenEnvelope(t *testing.T) {
	raw := strings.Replace(sampleRequest, "SE*11*", "SE*99*", 1)

	mapper := NewX12ToFHIRMapper()
	_, err := mapper.MapRequestToClaim(parseRequest(t, raw))
	mapErr, ok := err.(*MapError)
	if !ok || mapErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("err = %v, want envelope VALIDATION_FAILED", err)
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
}

func TestMapClaimToRequestRoundTrip(t *testing.T) {
	mapper := NewX12ToFHIRMapper()
	first, err := mapper.MapRequestToClaim(parseRequest(t, sampleRequest))
	if err != nil {
		t.Fatalf("MapRequestToClaim: %v", err)
	}

	out := NewFHIRToX12Mapper("SUBMITTERID", "PAYERID")
	out.Clock = fixedClock
	tx, err := out.MapClaimToRequest(first.Claim)
	if err != nil {
		t.Fatalf("MapClaimToRequest: %v", err)
	}

	wire := edi278.Format(tx)
	parsed, err := edi278.Parse(wire)
	if err != nil {
		t.Fatalf("Parse generated wire: %v", err)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("generated envelope invalid: %v", err)
	}

	// Fresh envelope, not the inbound one.
	if parsed.ISA.ControlNumber == "000000101" {
		t.Error("interchange control number reused from inbound message")
	}

	second, err := mapper.MapRequestToClaim(parsed)
	if err != nil {
		t.Fatalf("re-map: %v", err)
	}
	got := second.Claim.DiagnosisCodes()
	want := first.Claim.DiagnosisCodes()
	if len(got) != len(want) {
		t.Fatalf("diagnosis count changed: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("diagnosis[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if second.Claim.Patient.Reference != first.Claim.Patient.Reference {
		t.Errorf("patient changed: %q vs %q", second.Claim.Patient.Reference, first.Claim.Patient.Reference)
	}
}

func TestMapClaimToRequestRejectsNonPreauth(t *testing.T) {
	claim := &r4.Claim{
		ResourceType: "Claim",
		Status:       "active",
		Use:          r4.UseClaim,
		Patient:      r4.NewReference("Patient", "MEMBER001"),
		Provider:     r4.NewReference("Practitioner", "1234567890"),
	}

	out := NewFHIRToX12Mapper("SUBMITTERID", "PAYERID")
	_, err := out.MapClaimToRequest(claim)
	mapErr, ok := err.(*MapError)
	if !ok || mapErr.Code != "WRONG_USE" {
		t.Fatalf("err = %v, want WRONG_USE", err)
	}
}

// A claim with no provider reference cannot produce a 278: the request
// would carry no 1P loop and the UMO could not route it.
func TestMapClaimToRequestRejectsMissingProvider(t *testing.T) {
	inbound := NewX12ToFHIRMapper()
	result, err := inbound.MapRequestToClaim(parseRequest(t, sampleRequest))
	if err != nil {
		t.Fatalf("MapRequestToClaim: %v", err)
	}
	result.Claim.Provider = nil

	out := NewFHIRToX12Mapper("SUBMITTERID", "PAYERID")
	_, err = out.MapClaimToRequest(result.Claim)
	mapErr, ok := err.(*MapError)
	if !ok || mapErr.Code != "VALIDATION_FAILED" {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
}

func TestMapResponseToAck(t *testing.T) {
	tests := []struct {
		outcome      string
		wantAck      string
		wantAccepted int
	}{
		{r4.OutcomeComplete, edi278.AckAccepted, 1},
		{r4.OutcomeError, edi278.AckRejected, 0},
		{r4.OutcomeQueued, edi278.AckRejected, 0},
		{r4.OutcomePartial, edi278.AckRejected, 0},
	}

	mapper := NewFHIRToX12Mapper("PAYERID", "SUBMITTERID")
	mapper.Clock = fixedClock

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			resp := &r4.ClaimResponse{
				ResourceType: "ClaimResponse",
				Status:       "active",
				Outcome:      tt.outcome,
			}
			tx, err := mapper.MapResponseToAck(resp, "000000201")
			if err != nil {
				t.Fatalf("MapResponseToAck: %v", err)
			}
			if tx.ST.SetID != edi278.TransactionSetID997 {
				t.Errorf("ST01 = %q, want 997", tx.ST.SetID)
			}

			parsed, err := edi278.Parse(edi278.Format(tx))
			if err != nil {
				t.Fatalf("Parse ack: %v", err)
			}
			if err := parsed.Validate(); err != nil {
				t.Fatalf("ack envelope invalid: %v", err)
			}

			var ak1 *edi278.FunctionalGroupResponse
			var ak5 *edi278.TransactionSetResponse
			var ak9 *edi278.FunctionalGroupTrailerResponse
			for _, seg := range parsed.Body {
				switch s := seg.(type) {
				case *edi278.FunctionalGroupResponse:
					ak1 = s
				case *edi278.TransactionSetResponse:
					ak5 = s
				case *edi278.FunctionalGroupTrailerResponse:
					ak9 = s
				}
			}
			if ak1 == nil || ak1.GroupControlNumber != "000000201" {
				t.Errorf("AK1 = %+v", ak1)
			}
			if ak5 == nil || ak5.AckCode != tt.wantAck {
				t.Errorf("AK5 = %+v, want ack %q", ak5, tt.wantAck)
			}
			if ak9 == nil || ak9.AckCode != tt.wantAck || ak9.AcceptedSets != tt.wantAccepted {
				t.Errorf("AK9 = %+v, want ack %q accepted %d", ak9, tt.wantAck, tt.wantAccepted)
			}
		})
	}
}
