package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// ReservedSubmittedKey is the key inside the persisted responses object that
// carries the respondent-side completion flag.
const ReservedSubmittedKey = "isSubmitted"

// Responses holds the answers collected for one form, keyed by question
// title, plus the respondent-side completion flag.
//
// On the wire Responses is a single flat object:
//
//	{"Name": "John", "Email": "j@x.io", "isSubmitted": true}
type Responses struct {
	Values      map[string]string
	IsSubmitted bool
}

// ResponseKey normalizes a question title into the key used for its answer.
// Titles are NFC normalized so that composed and decomposed spellings of the
// same title address the same answer.
func ResponseKey(title string) string {
	return norm.NFC.String(title)
}

// Clone returns a deep copy of r.
func (r Responses) Clone() Responses {
	out := Responses{IsSubmitted: r.IsSubmitted}
	if r.Values != nil {
		out.Values = maps.Clone(r.Values)
	}
	return out
}

// MarshalJSON writes the values and the reserved flag as one object.
// The flag is omitted when false. Keys are written in sorted order.
func (r Responses) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		flat[k] = v
	}
	delete(flat, ReservedSubmittedKey)
	if r.IsSubmitted {
		flat[ReservedSubmittedKey] = true
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat responses object. Non-string answers
// (numbers, booleans) are kept in their JSON text form; null answers are
// dropped.
func (r *Responses) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode responses: %w", err)
	}

	out := Responses{Values: make(map[string]string, len(raw))}
	for k, v := range raw {
		if k == ReservedSubmittedKey {
			var flag bool
			if err := json.Unmarshal(v, &flag); err != nil {
				return fmt.Errorf("decode responses: %s: %w", ReservedSubmittedKey, err)
			}
			out.IsSubmitted = flag
			continue
		}
		s, ok, err := answerText(v)
		if err != nil {
			return fmt.Errorf("decode responses: %q: %w", k, err)
		}
		if ok {
			out.Values[ResponseKey(k)] = s
		}
	}
	*r = out
	return nil
}

func answerText(v json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(v)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	}
	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		return strconv.FormatBool(b), true, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		return n.String(), true, nil
	}
	return "", false, fmt.Errorf("unsupported answer value %s", string(trimmed))
}
