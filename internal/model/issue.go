package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Field names a matchable text field of an IssueRecord.
// The values double as the field names written to duplicate reports.
type Field string

// Matchable fields of an issue record.
const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldCity        Field = "location.city"
	FieldStreet      Field = "location.street"
)

// AllFields lists the matchable fields in their canonical order.
var AllFields = []Field{FieldTitle, FieldDescription, FieldCity, FieldStreet}

// Location is the nested location block of an issue.
type Location struct {
	City         string   `json:"city,omitempty"`
	Street       string   `json:"street,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// IssueRecord is one reported civic issue, loaded from a single JSON file.
//
// File and Path are set by the loader and record where the issue came from.
// They are not part of the issue itself: they are never encoded and never
// take part in matching.
type IssueRecord struct {
	ID          string    `json:"id" validate:"required"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Status      string    `json:"status,omitempty"`
	Location    *Location `json:"location,omitempty"`
	SubmittedAt Timestamp `json:"submitted_at,omitzero"`

	File string `json:"-"`
	Path string `json:"-"`
}

// FieldValue returns the raw text of the given field.
// Missing fields, including a missing location block, yield "".
func (r *IssueRecord) FieldValue(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldDescription:
		return r.Description
	case FieldCity:
		if r.Location == nil {
			return ""
		}
		return r.Location.City
	case FieldStreet:
		if r.Location == nil {
			return ""
		}
		return r.Location.Street
	default:
		return ""
	}
}

// timestampLayouts are tried in order when decoding submitted_at.
// Issue files are written by several tools, so date-only and zone-less
// values show up next to RFC 3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is a submission time decoded leniently from JSON.
// The zero value means the record carried no timestamp.
//
// A value that is not a string, or a string in none of the accepted
// layouts, never fails decoding: the time stays zero and the original
// text is kept in Raw. Such records still take part in matching and sort
// with the undated ones.
type Timestamp struct {
	time.Time

	// Raw is the submitted_at value as found in the file when it could not
	// be parsed. Empty when parsing succeeded or no value was given.
	Raw string
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Unparsed reports whether a value was present but not understood.
func (t Timestamp) Unparsed() bool {
	return t.IsZero() && t.Raw != ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Raw = string(bytes.TrimSpace(data))
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		t.Raw = s
		return nil
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
// An unparsed value is written back as the text it was read from.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		if t.Raw != "" {
			return json.Marshal(t.Raw)
		}
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// String returns the RFC 3339 form, the raw text of an unparsed value,
// or "" when there is no timestamp.
func (t Timestamp) String() string {
	if t.IsZero() {
		return t.Raw
	}
	return t.Format(time.RFC3339)
}
