package edi278

import (
	"fmt"
	"strings"
)

// Transaction is a single-transaction X12 interchange: one ISA/IEA envelope
// holding one GS/GE functional group holding one ST/SE transaction set. The
// 278 exchanges this engine handles never batch multiple sets per
// interchange, so the model is deliberately flat.
type Transaction struct {
	ISA *InterchangeHeader
	GS  *GroupHeader
	ST  *TransactionSetHeader

	// Body holds the business segments between ST and SE in wire order.
	Body []Segment

	SE  *TransactionSetTrailer
	GE  *GroupTrailer
	IEA *InterchangeTrailer
}

// BHT returns the begin-hierarchical-transaction segment, or nil.
func (t *Transaction) BHT() *BeginHierarchicalTransaction {
	for _, seg := range t.Body {
		if b, ok := seg.(*BeginHierarchicalTransaction); ok {
			return b
		}
	}
	return nil
}

// FindEntity returns the first NM1 segment with the given entity identifier
// code. Duplicate entities per code are tolerated; the first wins.
func (t *Transaction) FindEntity(entityCode string) *EntityName {
	for _, seg := range t.Body {
		if nm1, ok := seg.(*EntityName); ok && nm1.EntityIdentifierCode == entityCode {
			return nm1
		}
	}
	return nil
}

// HierarchicalLevels returns all HL segments in wire order.
func (t *Transaction) HierarchicalLevels() []*HierarchicalLevel {
	var levels []*HierarchicalLevel
	for _, seg := range t.Body {
		if hl, ok := seg.(*HierarchicalLevel); ok {
			levels = append(levels, hl)
		}
	}
	return levels
}

// DiagnosisCodes returns every HI code composite whose qualifier matches,
// in segment encounter order.
func (t *Transaction) DiagnosisCodes(qualifier string) []HealthCareCode {
	var codes []HealthCareCode
	for _, seg := range t.Body {
		hi, ok := seg.(*HealthCareInfo)
		if !ok {
			continue
		}
		for _, c := range hi.Codes {
			if c.Qualifier == qualifier {
				codes = append(codes, c)
			}
		}
	}
	return codes
}

// SegmentCount is the SE01 value: every segment from ST through SE inclusive.
func (t *Transaction) SegmentCount() int {
	return len(t.Body) + 2
}

// Validate checks the envelope invariants: control numbers match between
// opening and closing segments, trailer counts reflect nesting, and the HL
// tree only references previously declared levels.
func (t *Transaction) Validate() error {
	if t.ISA == nil || t.GS == nil || t.ST == nil || t.SE == nil || t.GE == nil || t.IEA == nil {
		return fmt.Errorf("incomplete envelope")
	}
	if strings.TrimSpace(t.ISA.ControlNumber) != strings.TrimSpace(t.IEA.ControlNumber) {
		return fmt.Errorf("interchange control number mismatch: ISA %q vs IEA %q",
			t.ISA.ControlNumber, t.IEA.ControlNumber)
	}
	if t.GS.ControlNumber != t.GE.ControlNumber {
		return fmt.Errorf("group control number mismatch: GS %q vs GE %q",
			t.GS.ControlNumber, t.GE.ControlNumber)
	}
	if t.ST.ControlNumber != t.SE.ControlNumber {
		return fmt.Errorf("transaction set control number mismatch: ST %q vs SE %q",
			t.ST.ControlNumber, t.SE.ControlNumber)
	}
	if got := t.SegmentCount(); t.SE.SegmentCount != got {
		return fmt.Errorf("SE segment count %d does not match actual %d", t.SE.SegmentCount, got)
	}
	if t.GE.TransactionSetCount != 1 {
		return fmt.Errorf("GE transaction set count %d, want 1", t.GE.TransactionSetCount)
	}
	if t.IEA.GroupCount != 1 {
		return fmt.Errorf("IEA functional group count %d, want 1", t.IEA.GroupCount)
	}

	declared := make(map[string]bool)
	for _, hl := range t.HierarchicalLevels() {
		if hl.ParentID != "" && !declared[hl.ParentID] {
			return fmt.Errorf("HL %s references undeclared parent %s", hl.ID, hl.ParentID)
		}
		if !knownHLLevels[hl.LevelCode] {
			return fmt.Errorf("HL %s has unknown level code %q", hl.ID, hl.LevelCode)
		}
		declared[hl.ID] = true
	}
	return nil
}

// knownHLLevels is the set of HL level codes a 278 hierarchy can carry.
var knownHLLevels = map[string]bool{
	HLLevelInfoSource:   true,
	HLLevelInfoReceiver: true,
	HLLevelSubscriber:   true,
	HLLevelDependent:    true,
	HLLevelService:      true,
}
