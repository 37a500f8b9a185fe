package edi278

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse decodes a delimited X12 278 (or 997) interchange. Unknown segment
// tags are preserved as RawSegment; only segments shorter than their
// mandatory minimum, or with non-numeric trailer counts, fail parsing.
func Parse(raw string) (*Transaction, error) {
	tx := &Transaction{}
	offset := 0

	for _, chunk := range strings.Split(raw, SegmentTerminator) {
		segOffset := offset
		offset += len(chunk) + len(SegmentTerminator)

		trimmed := strings.TrimSpace(chunk)
		if trimmed == "" {
			continue
		}

		elems := strings.Split(trimmed, ElementSeparator)
		tag := SegmentTag(elems[0])

		if min, known := minElements[tag]; known && len(elems) < min {
			return nil, &MalformedSegmentError{
				SegmentTag: string(tag),
				Raw:        trimmed,
				Offset:     segOffset,
				Reason:     fmt.Sprintf("%d elements, mandatory minimum is %d", len(elems), min),
			}
		}

		seg, err := decodeSegment(tag, elems)
		if err != nil {
			return nil, &MalformedSegmentError{
				SegmentTag: string(tag),
				Raw:        trimmed,
				Offset:     segOffset,
				Reason:     err.Error(),
			}
		}

		switch s := seg.(type) {
		case *InterchangeHeader:
			tx.ISA = s
		case *GroupHeader:
			tx.GS = s
		case *TransactionSetHeader:
			tx.ST = s
		case *TransactionSetTrailer:
			tx.SE = s
		case *GroupTrailer:
			tx.GE = s
		case *InterchangeTrailer:
			tx.IEA = s
		default:
			tx.Body = append(tx.Body, seg)
		}
	}

	return tx, nil
}

func decodeSegment(tag SegmentTag, elems []string) (Segment, error) {
	switch tag {
	case TagISA:
		return &InterchangeHeader{
			AuthQualifier:       strings.TrimSpace(elems[1]),
			AuthInfo:            strings.TrimSpace(elems[2]),
			SecurityQualifier:   strings.TrimSpace(elems[3]),
			SecurityInfo:        strings.TrimSpace(elems[4]),
			SenderQualifier:     strings.TrimSpace(elems[5]),
			SenderID:            strings.TrimSpace(elems[6]),
			ReceiverQualifier:   strings.TrimSpace(elems[7]),
			ReceiverID:          strings.TrimSpace(elems[8]),
			Date:                elems[9],
			Time:                elems[10],
			RepetitionSeparator: elems[11],
			Version:             elems[12],
			ControlNumber:       elems[13],
			AckRequested:        elems[14],
			UsageIndicator:      elems[15],
			ComponentSeparator:  elems[16],
		}, nil
	case TagGS:
		return &GroupHeader{
			FunctionalID:  elems[1],
			SenderCode:    elems[2],
			ReceiverCode:  elems[3],
			Date:          elems[4],
			Time:          elems[5],
			ControlNumber: elems[6],
			AgencyCode:    elems[7],
			Version:       elems[8],
		}, nil
	case TagST:
		st := &TransactionSetHeader{SetID: elems[1], ControlNumber: elems[2]}
		if len(elems) > 3 {
			st.Version = elems[3]
		}
		return st, nil
	case TagBHT:
		bht := &BeginHierarchicalTransaction{Structure: elems[1], Purpose: elems[2]}
		if len(elems) > 3 {
			bht.ReferenceID = elems[3]
		}
		if len(elems) > 4 {
			bht.Date = elems[4]
		}
		if len(elems) > 5 {
			bht.Time = elems[5]
		}
		if len(elems) > 6 {
			bht.TransactionType = elems[6]
		}
		return bht, nil
	case TagHL:
		hl := &HierarchicalLevel{
			ID:        elems[1],
			ParentID:  elems[2],
			LevelCode: elems[3],
		}
		if len(elems) > 4 {
			hl.ChildCode = elems[4]
		}
		return hl, nil
	case TagNM1:
		nm1 := &EntityName{EntityIdentifierCode: elems[1], EntityTypeQualifier: elems[2]}
		opt := []*string{&nm1.LastOrOrgName, &nm1.FirstName, &nm1.MiddleName,
			&nm1.Prefix, &nm1.Suffix, &nm1.IDQualifier, &nm1.ID}
		for i, p := range opt {
			if len(elems) > i+3 {
				*p = elems[i+3]
			}
		}
		return nm1, nil
	case TagREF:
		ref := &Reference{Qualifier: elems[1], Value: elems[2]}
		if len(elems) > 3 {
			ref.Description = elems[3]
		}
		return ref, nil
	case TagDTP:
		return &DateTimePeriod{Qualifier: elems[1], Format: elems[2], Value: elems[3]}, nil
	case TagHI:
		hi := &HealthCareInfo{}
		for _, composite := range elems[1:] {
			if composite == "" {
				continue
			}
			parts := strings.SplitN(composite, ComponentSeparator, 2)
			code := HealthCareCode{Qualifier: parts[0]}
			if len(parts) > 1 {
				code.Code = parts[1]
			}
			hi.Codes = append(hi.Codes, code)
		}
		return hi, nil
	case TagHCP:
		hcp := &PricingInfo{Methodology: elems[1]}
		if len(elems) > 2 {
			hcp.Amount = elems[2]
		}
		if len(elems) > 3 {
			hcp.Rest = elems[3:]
		}
		return hcp, nil
	case TagAK1:
		return &FunctionalGroupResponse{FunctionalID: elems[1], GroupControlNumber: elems[2]}, nil
	case TagAK5:
		return &TransactionSetResponse{AckCode: elems[1]}, nil
	case TagAK9:
		included, err := atoiElement(elems[2], "AK902")
		if err != nil {
			return nil, err
		}
		received, err := atoiElement(elems[3], "AK903")
		if err != nil {
			return nil, err
		}
		accepted, err := atoiElement(elems[4], "AK904")
		if err != nil {
			return nil, err
		}
		return &FunctionalGroupTrailerResponse{
			AckCode:      elems[1],
			IncludedSets: included,
			ReceivedSets: received,
			AcceptedSets: accepted,
		}, nil
	case TagSE:
		count, err := atoiElement(elems[1], "SE01")
		if err != nil {
			return nil, err
		}
		return &TransactionSetTrailer{SegmentCount: count, ControlNumber: elems[2]}, nil
	case TagGE:
		count, err := atoiElement(elems[1], "GE01")
		if err != nil {
			return nil, err
		}
		return &GroupTrailer{TransactionSetCount: count, ControlNumber: elems[2]}, nil
	case TagIEA:
		count, err := atoiElement(elems[1], "IEA01")
		if err != nil {
			return nil, err
		}
		return &InterchangeTrailer{GroupCount: count, ControlNumber: elems[2]}, nil
	default:
		return &RawSegment{TagValue: elems[0], Elems: elems[1:]}, nil
	}
}

func atoiElement(s, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s is not numeric: %q", name, s)
	}
	return n, nil
}
