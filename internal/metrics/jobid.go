package metrics

import "encoding/json"

// TryParseJobID extracts the job identifier from a 202 response body.
// The scheduler returns either "id" or "jobId" depending on version.
// Any parse failure is a defined no-op: ok is false and the caller
// records nothing.
func TryParseJobID(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", false
	}
	for _, key := range []string{"id", "jobId"} {
		raw, present := doc[key]
		if !present {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}
