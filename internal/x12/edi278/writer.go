package edi278

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ControlNumberGenerator issues 9-digit numeric control numbers. ISA, GS and
// ST numbers are independent namespaces per the standard, but a single
// generator never reuses a value, so numbers issued for one message cannot
// collide within any namespace.
type ControlNumberGenerator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	used map[string]bool
}

// NewControlNumberGenerator creates a generator seeded from the clock.
func NewControlNumberGenerator() *ControlNumberGenerator {
	return &ControlNumberGenerator{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		used: make(map[string]bool),
	}
}

// Next returns a fresh 9-digit control number, zero padded.
func (g *ControlNumberGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		n := fmt.Sprintf("%09d", g.rng.Intn(1_000_000_000))
		if !g.used[n] {
			g.used[n] = true
			return n
		}
	}
}

// NewEnvelope builds the ISA/GS/ST header triple with freshly generated
// control numbers. The matching trailers are stamped by Format.
func NewEnvelope(senderID, receiverID, setID, functionalID string, gen *ControlNumberGenerator, now time.Time) (*InterchangeHeader, *GroupHeader, *TransactionSetHeader) {
	isa := &InterchangeHeader{
		AuthQualifier:       "00",
		SecurityQualifier:   "00",
		SenderQualifier:     "ZZ",
		SenderID:            senderID,
		ReceiverQualifier:   "ZZ",
		ReceiverID:          receiverID,
		Date:                now.Format(isaFixedDateLayout),
		Time:                now.Format(isaFixedTimeLayout),
		RepetitionSeparator: "^",
		Version:             "00501",
		ControlNumber:       gen.Next(),
		AckRequested:        "0",
		UsageIndicator:      "P",
		ComponentSeparator:  ComponentSeparator,
	}
	gs := &GroupHeader{
		FunctionalID:  functionalID,
		SenderCode:    senderID,
		ReceiverCode:  receiverID,
		Date:          now.Format(gsDateLayout),
		Time:          now.Format(gsTimeLayout),
		ControlNumber: gen.Next(),
		AgencyCode:    "X",
		Version:       VersionCode,
	}
	st := &TransactionSetHeader{
		SetID:         setID,
		ControlNumber: gen.Next(),
		Version:       VersionCode,
	}
	if setID == TransactionSetID997 {
		gs.Version = "005010"
		st.Version = ""
	}
	return isa, gs, st
}

// Format serializes a transaction to the wire. Trailer segments are
// recomputed so the envelope counts and control numbers are always
// internally consistent; body segments are emitted in stored order, which
// builders keep canonical (BHT, HL loop with NM1/REF/DTP/HI/HCP per level).
func Format(tx *Transaction) string {
	tx.SE = &TransactionSetTrailer{
		SegmentCount:  tx.SegmentCount(),
		ControlNumber: tx.ST.ControlNumber,
	}
	tx.GE = &GroupTrailer{
		TransactionSetCount: 1,
		ControlNumber:       tx.GS.ControlNumber,
	}
	tx.IEA = &InterchangeTrailer{
		GroupCount:    1,
		ControlNumber: tx.ISA.ControlNumber,
	}

	segments := make([]Segment, 0, len(tx.Body)+6)
	segments = append(segments, tx.ISA, tx.GS, tx.ST)
	segments = append(segments, tx.Body...)
	segments = append(segments, tx.SE, tx.GE, tx.IEA)

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(strings.Join(seg.Elements(), ElementSeparator))
		b.WriteString(SegmentTerminator)
	}
	return b.String()
}
