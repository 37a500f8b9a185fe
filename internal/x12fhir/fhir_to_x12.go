package x12fhir

import (
	"fmt"
	"time"

	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
)

// FHIRToX12Mapper transforms FHIR R4 prior authorization resources into X12
// transactions. Every generated transaction gets a fresh envelope; control
// numbers are never reused across messages from the same mapper.
type FHIRToX12Mapper struct {
	SenderID   string
	ReceiverID string

	ControlNumbers *edi278.ControlNumberGenerator
	Clock          func() time.Time
}

// NewFHIRToX12Mapper creates a mapper identified on the wire by the given
// trading partner IDs.
func NewFHIRToX12Mapper(senderID, receiverID string) *FHIRToX12Mapper {
	return &FHIRToX12Mapper{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		ControlNumbers: edi278.NewControlNumberGenerator(),
		Clock:          time.Now,
	}
}

// MapClaimToRequest converts a preauthorization Claim into a 278 request
// transaction ready for Format.
func (m *FHIRToX12Mapper) MapClaimToRequest(claim *r4.Claim) (*edi278.Transaction, error) {
	if claim == nil {
		return nil, &MapError{Field: "Claim", Code: "NULL_INPUT", Message: "claim is required"}
	}
	if result := r4.ValidateClaim(claim); !result.Valid {
		return nil, &MapError{
			Field:   "Claim",
			Code:    "VALIDATION_FAILED",
			Message: fmt.Sprintf("claim validation failed: %v", result.Issues),
		}
	}
	if claim.Use != r4.UsePreauthorization {
		return nil, &MapError{
			Field:   "Claim.use",
			Code:    "WRONG_USE",
			Message: fmt.Sprintf("use %q, want %s", claim.Use, r4.UsePreauthorization),
		}
	}

	now := m.Clock()
	isa, gs, st := edi278.NewEnvelope(m.SenderID, m.ReceiverID,
		edi278.TransactionSetID278, edi278.FunctionalID278, m.ControlNumbers, now)

	referenceID := claim.ID
	if len(claim.Identifier) > 0 && claim.Identifier[0].Value != "" {
		referenceID = claim.Identifier[0].Value
	}

	body := []edi278.Segment{
		&edi278.BeginHierarchicalTransaction{
			Structure:       edi278.BHTStructure278,
			Purpose:         edi278.BHTPurposeRequest,
			ReferenceID:     referenceID,
			Date:            edi278.FormatDate(now),
			Time:            now.Format("1504"),
			TransactionType: edi278.BHTTransactionTypeReq,
		},
		&edi278.HierarchicalLevel{ID: "1", LevelCode: edi278.HLLevelInfoSource, ChildCode: "1"},
	}
	if claim.Insurer != nil {
		body = append(body, &edi278.EntityName{
			EntityIdentifierCode: edi278.EntityUMO,
			EntityTypeQualifier:  "2",
			LastOrOrgName:        claim.Insurer.Display,
			IDQualifier:          "PI",
			ID:                   claim.Insurer.ID(),
		})
	}
	body = append(body, &edi278.HierarchicalLevel{ID: "2", ParentID: "1", LevelCode: edi278.HLLevelInfoReceiver, ChildCode: "1"})
	if claim.Provider != nil {
		body = append(body, &edi278.EntityName{
			EntityIdentifierCode: edi278.EntityProvider,
			EntityTypeQualifier:  "1",
			LastOrOrgName:        claim.Provider.Display,
			IDQualifier:          "XX",
			ID:                   claim.Provider.ID(),
		})
	}
	body = append(body, &edi278.HierarchicalLevel{ID: "3", ParentID: "2", LevelCode: edi278.HLLevelSubscriber, ChildCode: "0"})
	body = append(body, &edi278.EntityName{
		EntityIdentifierCode: edi278.EntityPatient,
		EntityTypeQualifier:  "1",
		LastOrOrgName:        claim.Patient.Display,
		IDQualifier:          "MI",
		ID:                   claim.Patient.ID(),
	})

	if claim.BillablePeriod != nil && !claim.BillablePeriod.Start.IsZero() {
		body = append(body, &edi278.DateTimePeriod{
			Qualifier: edi278.DateQualifierService,
			Format:    edi278.DateFormatCCYYMMDD,
			Value:     edi278.FormatDate(claim.BillablePeriod.Start),
		})
	}

	if codes := claim.DiagnosisCodes(); len(codes) > 0 {
		hi := &edi278.HealthCareInfo{}
		for _, code := range codes {
			hi.Codes = append(hi.Codes, edi278.HealthCareCode{
				Qualifier: edi278.CodeListICD10,
				Code:      code,
			})
		}
		body = append(body, hi)
	}

	return &edi278.Transaction{ISA: isa, GS: gs, ST: st, Body: body}, nil
}

// MapResponseToAck converts a ClaimResponse into a 997-style functional
// acknowledgment for the originating group. A complete outcome acknowledges
// as accepted; every other outcome rejects.
func (m *FHIRToX12Mapper) MapResponseToAck(resp *r4.ClaimResponse, originalGroupControl string) (*edi278.Transaction, error) {
	if resp == nil {
		return nil, &MapError{Field: "ClaimResponse", Code: "NULL_INPUT", Message: "claim response is required"}
	}
	if result := r4.ValidateClaimResponse(resp); !result.Valid {
		return nil, &MapError{
			Field:   "ClaimResponse",
			Code:    "VALIDATION_FAILED",
			Message: fmt.Sprintf("claim response validation failed: %v", result.Issues),
		}
	}

	ack := AckCodeForOutcome(resp.Outcome)
	accepted := 0
	if ack == edi278.AckAccepted {
		accepted = 1
	}

	isa, gs, st := edi278.NewEnvelope(m.SenderID, m.ReceiverID,
		edi278.TransactionSetID997, edi278.FunctionalID997, m.ControlNumbers, m.Clock())

	return &edi278.Transaction{
		ISA: isa,
		GS:  gs,
		ST:  st,
		Body: []edi278.Segment{
			&edi278.FunctionalGroupResponse{
				FunctionalID:       edi278.FunctionalID278,
				GroupControlNumber: originalGroupControl,
			},
			&edi278.TransactionSetResponse{AckCode: ack},
			&edi278.FunctionalGroupTrailerResponse{
				AckCode:      ack,
				IncludedSets: 1,
				ReceivedSets: 1,
				AcceptedSets: accepted,
			},
		},
	}, nil
}
