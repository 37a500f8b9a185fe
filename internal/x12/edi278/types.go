// Package edi278 provides typed X12 278 (Health Care Services Review)
// transaction structures and the positional/delimited wire codec.
// Segment layouts follow the 005010X217 implementation guide.
package edi278

import (
	"fmt"
	"time"
)

// Default interchange delimiters. The component separator is configurable
// per ISA16 but every message this engine generates uses the defaults.
const (
	SegmentTerminator  = "~"
	ElementSeparator   = "*"
	ComponentSeparator = ":"
)

// Transaction set and functional group identifiers for the 278.
const (
	TransactionSetID278 = "278"
	TransactionSetID997 = "997"
	FunctionalID278     = "HI"
	FunctionalID997     = "FA"
	VersionCode         = "005010X217"
)

// BHT hierarchical structure and purpose codes used by the 278.
const (
	BHTStructure278       = "0007"
	BHTPurposeRequest     = "13"
	BHTPurposeResponse    = "11"
	BHTTransactionTypeReq = "RQ"
	BHTTransactionTypeRsp = "RP"
)

// HL level codes in the 278 hierarchy.
const (
	HLLevelInfoSource   = "20"
	HLLevelInfoReceiver = "21"
	HLLevelSubscriber   = "22"
	HLLevelDependent    = "23"
	HLLevelService      = "SS"
)

// NM1 entity identifier codes the mapper cares about.
const (
	EntityProvider   = "1P"
	EntityPatient    = "QC"
	EntityPayer      = "PR"
	EntitySubscriber = "IL"
	EntityUMO        = "X3"
)

// HI code list qualifiers. ABF marks ICD-10-CM diagnosis codes.
const (
	CodeListICD10  = "ABF"
	CodeListICD10P = "ABJ"
)

// Acknowledgment codes carried in AK5/AK9 (997 functional acknowledgment).
const (
	AckAccepted = "A"
	AckRejected = "E"
)

// DTP qualifiers used in prior-auth requests.
const (
	DateQualifierService      = "472"
	DateQualifierAdmission    = "435"
	DateFormatCCYYMMDD        = "D8"
	DateFormatRangeCCYYMMDD   = "RD8"
	DateFormatCCYYMMDDHHMM    = "DT"
	isaFixedDateLayout        = "060102"
	isaFixedTimeLayout        = "1504"
	gsDateLayout              = "20060102"
	gsTimeLayout              = "1504"
	dtpDateLayout             = "20060102"
)

// SegmentTag identifies a segment kind.
type SegmentTag string

// Recognized segment tags. Anything else parses into a RawSegment.
const (
	TagISA SegmentTag = "ISA"
	TagGS  SegmentTag = "GS"
	TagST  SegmentTag = "ST"
	TagBHT SegmentTag = "BHT"
	TagHL  SegmentTag = "HL"
	TagNM1 SegmentTag = "NM1"
	TagREF SegmentTag = "REF"
	TagDTP SegmentTag = "DTP"
	TagHI  SegmentTag = "HI"
	TagHCP SegmentTag = "HCP"
	TagAK1 SegmentTag = "AK1"
	TagAK5 SegmentTag = "AK5"
	TagAK9 SegmentTag = "AK9"
	TagSE  SegmentTag = "SE"
	TagGE  SegmentTag = "GE"
	TagIEA SegmentTag = "IEA"
)

// minElements is the mandatory minimum element count per recognized tag
// (counting the tag itself as element zero). Segments shorter than this
// fail parsing; longer segments are fine, trailing elements are kept.
var minElements = map[SegmentTag]int{
	TagISA: 17,
	TagGS:  9,
	TagST:  3,
	TagBHT: 3,
	TagHL:  4,
	TagNM1: 3,
	TagREF: 3,
	TagDTP: 4,
	TagHI:  2,
	TagHCP: 2,
	TagAK1: 3,
	TagAK5: 2,
	TagAK9: 5,
	TagSE:  3,
	TagGE:  3,
	TagIEA: 3,
}

// Segment is the closed set of segment variants an X12 278 transaction can
// carry. Unrecognized tags are preserved as *RawSegment so foreign segments
// survive a parse/format round trip.
type Segment interface {
	// Tag returns the segment identifier.
	Tag() SegmentTag
	// Elements renders the segment back to its wire elements, tag first.
	Elements() []string
}

// MalformedSegmentError reports a segment that violates its mandatory
// minimum element count. Offset is the byte position of the segment start
// within the parsed input.
type MalformedSegmentError struct {
	SegmentTag string
	Raw        string
	Offset     int
	Reason     string
}

func (e *MalformedSegmentError) Error() string {
	return fmt.Sprintf("malformed %s segment at offset %d: %s", e.SegmentTag, e.Offset, e.Reason)
}

// FormatDate renders a time in the CCYYMMDD form DTP and GS segments use.
func FormatDate(t time.Time) string {
	return t.Format(dtpDateLayout)
}

// ParseDate parses a CCYYMMDD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dtpDateLayout, s)
}
