// Package legacyjson decodes JSON payloads produced by the legacy PHP
// portal, which sometimes wraps the JSON object in non-JSON notices
// (warnings, stray HTML). Callers get a strict parse first and a
// substring recovery second, in one place instead of at every call site.
package legacyjson

import (
	"encoding/json"
	"strings"

	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

// Decode unmarshals raw into dest. If the payload is not valid JSON, the
// region between the first '{' and the last '}' is retried before giving up
// with ErrInvalidResponseFormat.
func Decode(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err == nil {
		return nil
	}

	s := string(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return appErrors.Clone(appErrors.ErrInvalidResponseFormat, "")
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidResponseFormat.Code, appErrors.ErrInvalidResponseFormat.Status, appErrors.ErrInvalidResponseFormat.Message)
	}
	return nil
}

// DecodeString is a convenience wrapper over Decode for string payloads.
func DecodeString(raw string, dest interface{}) error {
	return Decode([]byte(raw), dest)
}
