// Package integration provides integration tests for the prior authorization engine.
package integration

import (
	"os"
	"testing"
	"time"

	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
	"github.com/claimspring/go-pax/internal/x12fhir"
	"github.com/claimspring/go-pax/pkg/idempotency"
)

func TestX12ToFHIRPipeline(t *testing.T) {
	data, err := os.ReadFile("../fixtures/prior_auth_request.edi")
	if err != nil {
		t.Skipf("fixture not found: %v", err)
	}

	tx, err := edi278.Parse(string(data))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("envelope validation failed: %v", err)
	}

	inbound := x12fhir.NewX12ToFHIRMapper()
	result, err := inbound.MapRequestToClaim(tx)
	if err != nil {
		t.Fatalf("mapping failed: %v", err)
	}

	claim := result.Claim
	if claim.Use != r4.UsePreauthorization {
		t.Errorf("use = %q, want preauthorization", claim.Use)
	}
	if got := claim.Patient.Reference; got != "Patient/MEMBER001" {
		t.Errorf("patient = %q", got)
	}
	if len(claim.Diagnosis) != 2 {
		t.Fatalf("diagnosis count = %d, want 2", len(claim.Diagnosis))
	}
	if code := claim.Diagnosis[0].DiagnosisCodeableConcept.FirstCode(); code != "M5412" {
		t.Errorf("first diagnosis = %q", code)
	}

	validation := r4.ValidateClaim(claim)
	if !validation.Valid {
		t.Fatalf("mapped claim invalid: %+v", validation.Issues)
	}

	t.Logf("mapped claim %s with %d warnings", claim.ID, len(result.Warnings))
}

func TestFHIRToX12RoundTrip(t *testing.T) {
	data, err := os.ReadFile("../fixtures/prior_auth_request.edi")
	if err != nil {
		t.Skipf("fixture not found: %v", err)
	}

	tx, err := edi278.Parse(string(data))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	inbound := x12fhir.NewX12ToFHIRMapper()
	result, err := inbound.MapRequestToClaim(tx)
	if err != nil {
		t.Fatalf("inbound mapping failed: %v", err)
	}

	outbound := x12fhir.NewFHIRToX12Mapper("CLAIMSPRING", "PAYERGATE")
	regenerated, err := outbound.MapClaimToRequest(result.Claim)
	if err != nil {
		t.Fatalf("outbound mapping failed: %v", err)
	}

	wire := edi278.Format(regenerated)
	reparsed, err := edi278.Parse(wire)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if err := reparsed.Validate(); err != nil {
		t.Fatalf("regenerated envelope invalid: %v", err)
	}

	// Generated interchanges carry fresh control numbers.
	if reparsed.ISA.ControlNumber == tx.ISA.ControlNumber {
		t.Error("expected fresh interchange control number")
	}

	origCodes := tx.DiagnosisCodes(edi278.CodeListICD10)
	newCodes := reparsed.DiagnosisCodes(edi278.CodeListICD10)
	if len(origCodes) != len(newCodes) {
		t.Fatalf("diagnosis count changed: %d vs %d", len(origCodes), len(newCodes))
	}
	for i, code := range origCodes {
		if newCodes[i].Code != code.Code {
			t.Errorf("diagnosis %d = %q, want %q", i, newCodes[i].Code, code.Code)
		}
	}
}

func TestAcknowledgmentGeneration(t *testing.T) {
	outbound := x12fhir.NewFHIRToX12Mapper("CLAIMSPRING", "PAYERGATE")

	resp := &r4.ClaimResponse{
		ResourceType: "ClaimResponse",
		ID:           "resp-001",
		Status:       "active",
		Outcome:      r4.OutcomeComplete,
	}

	ackTx, err := outbound.MapResponseToAck(resp, "000000201")
	if err != nil {
		t.Fatalf("ack mapping failed: %v", err)
	}

	wire := edi278.Format(ackTx)
	parsed, err := edi278.Parse(wire)
	if err != nil {
		t.Fatalf("ack reparse failed: %v", err)
	}
	if parsed.ST.SetID != edi278.TransactionSetID997 {
		t.Errorf("set id = %q, want 997", parsed.ST.SetID)
	}

	var ak5 *edi278.TransactionSetResponse
	for _, seg := range parsed.Body {
		if s, ok := seg.(*edi278.TransactionSetResponse); ok {
			ak5 = s
		}
	}
	if ak5 == nil {
		t.Fatal("no AK5 segment in acknowledgment")
	}
	if ak5.AckCode != "A" {
		t.Errorf("ack code = %q, want A for complete outcome", ak5.AckCode)
	}
}

func TestRequestDeduplicationKey(t *testing.T) {
	ts := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	key1 := idempotency.GenerateKey("1234567890", "MEMBER001", "AUTH-REF-42", ts)
	key2 := idempotency.GenerateKey("1234567890", "MEMBER001", "AUTH-REF-42", ts.Add(20*time.Second))
	key3 := idempotency.GenerateKey("1234567890", "MEMBER001", "AUTH-REF-43", ts)

	if key1 != key2 {
		t.Error("retries within the same minute should hash to the same key")
	}
	if key1 == key3 {
		t.Error("different request refs should produce different keys")
	}
}
