package processor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwygoda/gather/internal/domain"
)

// ParseInfo decodes the JSON object printed by the tool's --json mode. The
// object must carry string "url" and "title" fields; anything else is ignored.
func ParseInfo(text string) (domain.Info, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &fields); err != nil {
		return domain.Info{}, &domain.MalformedPayloadError{Reason: "not a JSON object", Err: err}
	}
	if fields == nil {
		return domain.Info{}, &domain.MalformedPayloadError{Reason: "not a JSON object"}
	}

	url, err := stringField(fields, "url")
	if err != nil {
		return domain.Info{}, err
	}
	title, err := stringField(fields, "title")
	if err != nil {
		return domain.Info{}, err
	}
	return domain.Info{URL: url, Title: title}, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &domain.MalformedPayloadError{Reason: fmt.Sprintf("missing %q", name)}
	}
	// Unmarshalling null into a string is a silent no-op.
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &domain.MalformedPayloadError{Reason: fmt.Sprintf("%q is not a string", name), Err: err}
	}
	if s == nil {
		return "", &domain.MalformedPayloadError{Reason: fmt.Sprintf("%q is null", name)}
	}
	return *s, nil
}
