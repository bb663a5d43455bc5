package model

import (
	"bytes"
	"encoding/json"
)

// NoData marks a source that was queried but had nothing usable.
const NoData = "NO DATA AT THIS SOURCE"

// SourceValue is one source's contribution to an AggregateRow.
type SourceValue struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// AggregateRow maps a part number to exactly one value per configured source.
type AggregateRow struct {
	PartNumber PartNumber    `json:"part_number"`
	Values     []SourceValue `json:"values"`
}

// Get returns the value recorded for source.
func (r AggregateRow) Get(source string) (string, bool) {
	for _, v := range r.Values {
		if v.Source == source {
			return v.Value, true
		}
	}
	return "", false
}

// MarshalJSON renders the row as a flat object with sources in configured
// order, e.g. {"partNumber":"X","hpe.partsurfer":"..."}.
func (r AggregateRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"partNumber":`)
	pn, err := json.Marshal(string(r.PartNumber))
	if err != nil {
		return nil, err
	}
	buf.Write(pn)
	for _, v := range r.Values {
		k, err := json.Marshal(v.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
