package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxExactFloatInt is the largest integer a float64 holds exactly
const maxExactFloatInt = 1 << 53

// FlexID is a JSON scalar that the feed may encode either as a number or as
// a string. The original encoding is preserved so a persisted ledger keeps the
// same shape the feed produced.
type FlexID struct {
	value   string
	numeric bool
}

// NewFlexID creates a textual identifier, e.g. from a command-line argument
func NewFlexID(value string) FlexID {
	return FlexID{value: strings.TrimSpace(value)}
}

// NumericID creates an identifier that is encoded as a JSON number
func NumericID(value int64) FlexID {
	return FlexID{value: strconv.FormatInt(value, 10), numeric: true}
}

// String returns the identifier as it was received
func (f FlexID) String() string {
	return f.value
}

// IsZero reports whether the identifier is empty
func (f FlexID) IsZero() bool {
	return f.value == ""
}

// IsNumeric reports whether the identifier was encoded as a JSON number
func (f FlexID) IsNumeric() bool {
	return f.numeric
}

// Key returns the canonical comparison form. Text identifiers are compared
// verbatim, so "007" and "7" stay distinct. JSON numbers are reduced to their
// integer spelling, so 12345, 12345.0 and "12345" compare equal.
func (f FlexID) Key() string {
	if !f.numeric {
		return f.value
	}
	if i, err := strconv.ParseInt(f.value, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if fl, err := strconv.ParseFloat(f.value, 64); err == nil && fl == math.Trunc(fl) && math.Abs(fl) <= maxExactFloatInt {
		return strconv.FormatInt(int64(fl), 10)
	}
	return f.value
}

// Equal compares two identifiers by canonical key
func (f FlexID) Equal(other FlexID) bool {
	return f.Key() == other.Key()
}

// Int parses the identifier as a base-10 integer
func (f FlexID) Int() (int64, bool) {
	i, err := strconv.ParseInt(f.value, 10, 64)
	return i, err == nil
}

// UnmarshalJSON accepts numbers, strings and null
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = FlexID{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID{value: s}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a number or a string: %w", err)
	}
	*f = FlexID{value: n.String(), numeric: true}
	return nil
}

// MarshalJSON writes the identifier back in its original encoding
func (f FlexID) MarshalJSON() ([]byte, error) {
	if f.value == "" {
		return []byte("null"), nil
	}
	if f.numeric {
		return []byte(f.value), nil
	}
	return json.Marshal(f.value)
}

// CommitUser is the author block of a feed commit
type CommitUser struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Commit represents one record of the commit feed
type Commit struct {
	ID        FlexID     `json:"id"`
	Repo      string     `json:"repo"`
	Branch    string     `json:"branch"`
	User      CommitUser `json:"user"`
	Message   string     `json:"message"`
	Changeset FlexID     `json:"changeset"`
	Created   string     `json:"created"`
}

// Summary returns the first line of the commit message
func (c Commit) Summary() string {
	if idx := strings.Index(c.Message, "\n"); idx != -1 {
		return strings.TrimRight(c.Message[:idx], "\r")
	}
	return c.Message
}

// Body returns the commit message after the first line, trimmed
func (c Commit) Body() string {
	idx := strings.Index(c.Message, "\n")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(c.Message[idx+1:])
}

// CreatedAt parses the creation timestamp. The feed uses RFC 3339 with or
// without a zone suffix.
func (c Commit) CreatedAt() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, c.Created); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FeedPage is the JSON document returned by the commit feed
type FeedPage struct {
	Results []Commit `json:"results"`
}
