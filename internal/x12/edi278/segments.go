// Package edi278 segment definitions. Each segment is a typed struct
// implementing Segment; field order mirrors the element positions in the
// implementation guide.
package edi278

import (
	"strconv"
	"strings"
)

// InterchangeHeader is the ISA segment. ISA elements are fixed width and
// padded on format; parsed values keep their padding trimmed.
type InterchangeHeader struct {
	AuthQualifier       string
	AuthInfo            string
	SecurityQualifier   string
	SecurityInfo        string
	SenderQualifier     string
	SenderID            string
	ReceiverQualifier   string
	ReceiverID          string
	Date                string
	Time                string
	RepetitionSeparator string
	Version             string
	ControlNumber       string
	AckRequested        string
	UsageIndicator      string
	ComponentSeparator  string
}

func (s *InterchangeHeader) Tag() SegmentTag { return TagISA }

func (s *InterchangeHeader) Elements() []string {
	return []string{
		string(TagISA),
		padRight(s.AuthQualifier, 2),
		padRight(s.AuthInfo, 10),
		padRight(s.SecurityQualifier, 2),
		padRight(s.SecurityInfo, 10),
		padRight(s.SenderQualifier, 2),
		padRight(s.SenderID, 15),
		padRight(s.ReceiverQualifier, 2),
		padRight(s.ReceiverID, 15),
		s.Date,
		s.Time,
		s.RepetitionSeparator,
		s.Version,
		s.ControlNumber,
		s.AckRequested,
		s.UsageIndicator,
		s.ComponentSeparator,
	}
}

// GroupHeader is the GS segment.
type GroupHeader struct {
	FunctionalID  string
	SenderCode    string
	ReceiverCode  string
	Date          string
	Time          string
	ControlNumber string
	AgencyCode    string
	Version       string
}

func (s *GroupHeader) Tag() SegmentTag { return TagGS }

func (s *GroupHeader) Elements() []string {
	return []string{string(TagGS), s.FunctionalID, s.SenderCode, s.ReceiverCode,
		s.Date, s.Time, s.ControlNumber, s.AgencyCode, s.Version}
}

// TransactionSetHeader is the ST segment.
type TransactionSetHeader struct {
	SetID         string
	ControlNumber string
	Version       string
}

func (s *TransactionSetHeader) Tag() SegmentTag { return TagST }

func (s *TransactionSetHeader) Elements() []string {
	elems := []string{string(TagST), s.SetID, s.ControlNumber}
	if s.Version != "" {
		elems = append(elems, s.Version)
	}
	return elems
}

// BeginHierarchicalTransaction is the BHT segment.
type BeginHierarchicalTransaction struct {
	Structure       string
	Purpose         string
	ReferenceID     string
	Date            string
	Time            string
	TransactionType string
}

func (s *BeginHierarchicalTransaction) Tag() SegmentTag { return TagBHT }

func (s *BeginHierarchicalTransaction) Elements() []string {
	return trimTrailing([]string{string(TagBHT), s.Structure, s.Purpose,
		s.ReferenceID, s.Date, s.Time, s.TransactionType})
}

// HierarchicalLevel is the HL segment. ParentID is empty only for the root.
type HierarchicalLevel struct {
	ID        string
	ParentID  string
	LevelCode string
	ChildCode string
}

func (s *HierarchicalLevel) Tag() SegmentTag { return TagHL }

func (s *HierarchicalLevel) Elements() []string {
	return trimTrailing([]string{string(TagHL), s.ID, s.ParentID, s.LevelCode, s.ChildCode})
}

// EntityName is the NM1 segment.
type EntityName struct {
	EntityIdentifierCode string
	EntityTypeQualifier  string
	LastOrOrgName        string
	FirstName            string
	MiddleName           string
	Prefix               string
	Suffix               string
	IDQualifier          string
	ID                   string
}

func (s *EntityName) Tag() SegmentTag { return TagNM1 }

func (s *EntityName) Elements() []string {
	return trimTrailing([]string{string(TagNM1), s.EntityIdentifierCode,
		s.EntityTypeQualifier, s.LastOrOrgName, s.FirstName, s.MiddleName,
		s.Prefix, s.Suffix, s.IDQualifier, s.ID})
}

// Reference is the REF segment.
type Reference struct {
	Qualifier   string
	Value       string
	Description string
}

func (s *Reference) Tag() SegmentTag { return TagREF }

func (s *Reference) Elements() []string {
	return trimTrailing([]string{string(TagREF), s.Qualifier, s.Value, s.Description})
}

// DateTimePeriod is the DTP segment.
type DateTimePeriod struct {
	Qualifier string
	Format    string
	Value     string
}

func (s *DateTimePeriod) Tag() SegmentTag { return TagDTP }

func (s *DateTimePeriod) Elements() []string {
	return []string{string(TagDTP), s.Qualifier, s.Format, s.Value}
}

// HealthCareCode is one composite element of an HI segment, e.g. "ABF:M5412".
type HealthCareCode struct {
	Qualifier string
	Code      string
}

// HealthCareInfo is the HI segment: a run of code composites.
type HealthCareInfo struct {
	Codes []HealthCareCode
}

func (s *HealthCareInfo) Tag() SegmentTag { return TagHI }

func (s *HealthCareInfo) Elements() []string {
	elems := []string{string(TagHI)}
	for _, c := range s.Codes {
		elems = append(elems, c.Qualifier+ComponentSeparator+c.Code)
	}
	return elems
}

// PricingInfo is the HCP segment. Only the leading elements carry meaning
// for prior-auth pricing; the remainder is kept verbatim.
type PricingInfo struct {
	Methodology string
	Amount      string
	Rest        []string
}

func (s *PricingInfo) Tag() SegmentTag { return TagHCP }

func (s *PricingInfo) Elements() []string {
	elems := []string{string(TagHCP), s.Methodology}
	if s.Amount != "" || len(s.Rest) > 0 {
		elems = append(elems, s.Amount)
	}
	return append(elems, s.Rest...)
}

// FunctionalGroupResponse is the AK1 segment of a 997 acknowledgment.
type FunctionalGroupResponse struct {
	FunctionalID       string
	GroupControlNumber string
}

func (s *FunctionalGroupResponse) Tag() SegmentTag { return TagAK1 }

func (s *FunctionalGroupResponse) Elements() []string {
	return []string{string(TagAK1), s.FunctionalID, s.GroupControlNumber}
}

// TransactionSetResponse is the AK5 segment.
type TransactionSetResponse struct {
	AckCode string
}

func (s *TransactionSetResponse) Tag() SegmentTag { return TagAK5 }

func (s *TransactionSetResponse) Elements() []string {
	return []string{string(TagAK5), s.AckCode}
}

// FunctionalGroupTrailerResponse is the AK9 segment.
type FunctionalGroupTrailerResponse struct {
	AckCode       string
	IncludedSets  int
	ReceivedSets  int
	AcceptedSets  int
}

func (s *FunctionalGroupTrailerResponse) Tag() SegmentTag { return TagAK9 }

func (s *FunctionalGroupTrailerResponse) Elements() []string {
	return []string{string(TagAK9), s.AckCode,
		strconv.Itoa(s.IncludedSets), strconv.Itoa(s.ReceivedSets),
		strconv.Itoa(s.AcceptedSets)}
}

// TransactionSetTrailer is the SE segment. SegmentCount covers ST through SE
// inclusive.
type TransactionSetTrailer struct {
	SegmentCount  int
	ControlNumber string
}

func (s *TransactionSetTrailer) Tag() SegmentTag { return TagSE }

func (s *TransactionSetTrailer) Elements() []string {
	return []string{string(TagSE), strconv.Itoa(s.SegmentCount), s.ControlNumber}
}

// GroupTrailer is the GE segment.
type GroupTrailer struct {
	TransactionSetCount int
	ControlNumber       string
}

func (s *GroupTrailer) Tag() SegmentTag { return TagGE }

func (s *GroupTrailer) Elements() []string {
	return []string{string(TagGE), strconv.Itoa(s.TransactionSetCount), s.ControlNumber}
}

// InterchangeTrailer is the IEA segment.
type InterchangeTrailer struct {
	GroupCount    int
	ControlNumber string
}

func (s *InterchangeTrailer) Tag() SegmentTag { return TagIEA }

func (s *InterchangeTrailer) Elements() []string {
	return []string{string(TagIEA), strconv.Itoa(s.GroupCount), s.ControlNumber}
}

// RawSegment preserves an unrecognized segment verbatim.
type RawSegment struct {
	TagValue string
	Elems    []string
}

func (s *RawSegment) Tag() SegmentTag { return SegmentTag(s.TagValue) }

func (s *RawSegment) Elements() []string {
	return append([]string{s.TagValue}, s.Elems...)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// trimTrailing drops empty trailing elements so optional fields are not
// serialized as a run of separators.
func trimTrailing(elems []string) []string {
	end := len(elems)
	for end > 1 && elems[end-1] == "" {
		end--
	}
	return elems[:end]
}
