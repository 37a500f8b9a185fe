package edi278

import (
	"errors"
	"strings"
	"testing"
)

const sample278 = "ISA*00*          *00*          *ZZ*SUBMITTERID    *ZZ*PAYERID        *260115*0930*^*00501*000000101*0*P*:~" +
	"GS*HI*SUBMITTERID*PAYERID*20260115*0930*000000201*X*005010X217~" +
	"ST*278*000000301*005010X217~" +
	"BHT*0007*13*AUTH-REF-42*20260115*0930*RQ~" +
	"HL*1**20*1~" +
	"NM1*X3*2*ACME HEALTH PLAN*****PI*12345~" +
	"HL*2*1*21*1~" +
	"NM1*1P*1*SMITH*JANE****XX*1234567890~" +
	"HL*3*2*22*0~" +
	"NM1*QC*1*DOE*JOHN****MI*MEMBER001~" +
	"REF*EJ*PAT-CTRL-9~" +
	"DTP*472*D8*20260120~" +
	"HI*ABF:M5412*ABF:G8918~" +
	"HCP*03*125.00~" +
	"SE*13*000000301~" +
	"GE*1*000000201~" +
	"IEA*1*000000101~"

func TestParseSample278(t *testing.T) {
	tx, err := Parse(sample278)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if tx.ISA.SenderID != "SUBMITTERID" {
		t.Errorf("ISA sender = %q, want SUBMITTERID", tx.ISA.SenderID)
	}
	if tx.ST.SetID != TransactionSetID278 {
		t.Errorf("ST set id = %q, want 278", tx.ST.SetID)
	}

	bht := tx.BHT()
	if bht == nil {
		t.Fatal("BHT missing")
	}
	if bht.Purpose != BHTPurposeRequest || bht.ReferenceID != "AUTH-REF-42" {
		t.Errorf("BHT = %+v", bht)
	}

	patient := tx.FindEntity(EntityPatient)
	if patient == nil {
		t.Fatal("no QC entity")
	}
	if patient.LastOrOrgName != "DOE" || patient.ID != "MEMBER001" {
		t.Errorf("patient = %+v", patient)
	}

	provider := tx.FindEntity(EntityProvider)
	if provider == nil || provider.ID != "1234567890" {
		t.Errorf("provider = %+v", provider)
	}

	levels := tx.HierarchicalLevels()
	if len(levels) != 3 {
		t.Fatalf("HL count = %d, want 3", len(levels))
	}
	if levels[2].LevelCode != HLLevelSubscriber || levels[2].ParentID != "2" {
		t.Errorf("subscriber HL = %+v", levels[2])
	}
}

func TestParseDiagnosisOrder(t *testing.T) {
	tx, err := Parse(sample278)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	codes := tx.DiagnosisCodes(CodeListICD10)
	if len(codes) != 2 {
		t.Fatalf("diagnosis count = %d, want 2", len(codes))
	}
	if codes[0].Code != "M5412" || codes[1].Code != "G8918" {
		t.Errorf("diagnosis order = %v", codes)
	}
}

func TestParseFirstEntityWins(t *testing.T) {
	raw := strings.Replace(sample278,
		"NM1*QC*1*DOE*JOHN****MI*MEMBER001~",
		"NM1*QC*1*DOE*JOHN****MI*MEMBER001~NM1*QC*1*ROE*RICHARD****MI*MEMBER002~", 1)
	raw = strings.Replace(raw, "SE*13*", "SE*14*", 1)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := tx.FindEntity(EntityPatient).ID; got != "MEMBER001" {
		t.Errorf("patient id = %q, want first occurrence MEMBER001", got)
	}
}

func TestParseHLWithoutChildCode(t *testing.T) {
	raw := strings.Replace(sample278, "HL*3*2*22*0~", "HL*3*2*22~", 1)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	levels := tx.HierarchicalLevels()
	if len(levels) != 3 {
		t.Fatalf("HL count = %d, want 3", len(levels))
	}
	if levels[2].LevelCode != HLLevelSubscriber || levels[2].ChildCode != "" {
		t.Errorf("subscriber HL = %+v, want empty child code", levels[2])
	}
}

func TestParseShortSegment(t *testing.T) {
	raw := strings.Replace(sample278, "DTP*472*D8*20260120~", "DTP*472~", 1)

	_, err := Parse(raw)
	var malformed *MalformedSegmentError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedSegmentError", err)
	}
	if malformed.SegmentTag != "DTP" {
		t.Errorf("tag = %q, want DTP", malformed.SegmentTag)
	}
	if want := strings.Index(raw, "DTP*472"); malformed.Offset != want {
		t.Errorf("offset = %d, want %d", malformed.Offset, want)
	}
}

func TestParseNonNumericTrailerCount(t *testing.T) {
	raw := strings.Replace(sample278, "SE*13*", "SE*thirteen*", 1)

	_, err := Parse(raw)
	var malformed *MalformedSegmentError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedSegmentError", err)
	}
	if !strings.Contains(malformed.Reason, "SE01") {
		t.Errorf("reason = %q, want SE01 mention", malformed.Reason)
	}
}

func TestParseUnknownTagPreserved(t *testing.T) {
	raw := strings.Replace(sample278, "HCP*03*125.00~", "HCP*03*125.00~MSG*SEE ATTACHED NOTES~", 1)
	raw = strings.Replace(raw, "SE*13*", "SE*14*", 1)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var msg *RawSegment
	for _, seg := range tx.Body {
		if r, ok := seg.(*RawSegment); ok && r.TagValue == "MSG" {
			msg = r
		}
	}
	if msg == nil {
		t.Fatal("MSG segment not preserved")
	}
	if len(msg.Elems) != 1 || msg.Elems[0] != "SEE ATTACHED NOTES" {
		t.Errorf("MSG elements = %v", msg.Elems)
	}
}

func TestValidateControlNumberMismatch(t *testing.T) {
	raw := strings.Replace(sample278, "IEA*1*000000101~", "IEA*1*000000999~", 1)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = tx.Validate()
	if err == nil || !strings.Contains(err.Error(), "interchange control number") {
		t.Errorf("Validate = %v, want interchange control number mismatch", err)
	}
}

func TestValidateUndeclaredHLParent(t *testing.T) {
	raw := strings.Replace(sample278, "HL*3*2*22*0~", "HL*3*9*22*0~", 1)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = tx.Validate()
	if err == nil || !strings.Contains(err.Error(), "undeclared parent") {
		t.Errorf("Validate = %v, want undeclared parent", err)
	}
}

func TestValidateHLLevelCodes(t *testing.T) {
	// Dependent and service levels are legal even though the mapper only
	// walks entities; anything outside the 278 hierarchy is rejected.
	raw := strings.Replace(sample278, "HL*3*2*22*0~", "HL*3*2*23*1~HL*4*3*SS*0~", 1)
	raw = strings.Replace(raw, "SE*13*", "SE*14*", 1)
	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	raw = strings.Replace(sample278, "HL*3*2*22*0~", "HL*3*2*99*0~", 1)
	tx, err = Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = tx.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown level code") {
		t.Errorf("Validate = %v, want unknown level code", err)
	}
}
