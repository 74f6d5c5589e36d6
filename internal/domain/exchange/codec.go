// Package exchange converts profiles to and from the text carried by a QR code.
//
// The payload is the JSON form of the full profile. Encode and Decode are
// pure: they never persist anything and never read the clock, so the caller
// stamps scannedAt on a decoded profile before saving it.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
)

// ErrInvalidFormat is matched by every Decode failure.
var ErrInvalidFormat = errors.New("invalid profile data")

// Reason tells which Decode check rejected a payload.
type Reason string

const (
	ReasonMalformed    Reason = "malformed"
	ReasonMissingField Reason = "missing_field"
	ReasonInvalidEmail Reason = "invalid_email"
)

// RequiredFields lists the payload keys that must be present and non-empty.
var RequiredFields = []string{"id", "name", "role", "company", "phone", "email", "createdAt"}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FormatError describes a rejected payload. Field is empty for ReasonMalformed.
type FormatError struct {
	Field  string
	Reason Reason
	Err    error
}

func (e *FormatError) Error() string {
	switch e.Reason {
	case ReasonMissingField:
		return "missing required field: " + e.Field
	case ReasonInvalidEmail:
		return "invalid email format"
	default:
		if e.Err != nil {
			return ErrInvalidFormat.Error() + ": " + e.Err.Error()
		}
		return ErrInvalidFormat.Error()
	}
}

func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// ValidEmail reports whether s looks like local-part@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Encode serializes the full profile, scannedAt included when set.
func Encode(p entity.Profile) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Decode parses and validates a scanned payload. Values are returned
// verbatim; no trimming or case folding is applied. A truthy non-string
// field is kept as its JSON text, so "phone": 911234567890 reads as
// "911234567890".
func Decode(payload string) (entity.Profile, error) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	err := dec.Decode(&raw)
	if err == nil {
		if _, terr := dec.Token(); terr != io.EOF {
			err = errors.New("trailing data after payload")
		}
	}
	if err != nil {
		return entity.Profile{}, &FormatError{Reason: ReasonMalformed, Err: err}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return entity.Profile{}, &FormatError{Reason: ReasonMalformed}
	}

	for _, field := range RequiredFields {
		if v, present := obj[field]; !present || falsy(v) {
			return entity.Profile{}, &FormatError{Field: field, Reason: ReasonMissingField}
		}
	}

	values := make(map[string]string, len(RequiredFields))
	for _, field := range RequiredFields {
		values[field] = text(obj[field])
	}

	if !ValidEmail(values["email"]) {
		return entity.Profile{}, &FormatError{Field: "email", Reason: ReasonInvalidEmail}
	}

	p := entity.Profile{
		ID:        values["id"],
		Name:      values["name"],
		Role:      values["role"],
		Company:   values["company"],
		Phone:     values["phone"],
		Email:     values["email"],
		CreatedAt: values["createdAt"],
	}
	if s, ok := obj["scannedAt"].(string); ok {
		p.ScannedAt = s
	}
	return p, nil
}

// falsy mirrors the loose emptiness check scanners have always applied:
// null, false, 0 and "" all count as missing.
func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case string:
		return x == ""
	default:
		return false
	}
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
