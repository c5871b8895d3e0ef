package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryParseJobID(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{"id key", `{"id": "abc123"}`, "abc123", true},
		{"jobId key", `{"jobId": "j-1"}`, "j-1", true},
		{"id preferred over jobId", `{"id": "a", "jobId": "b"}`, "a", true},
		{"full scheduler response", `{"jobId":"550e8400-e29b-41d4-a716-446655440000","clientId":"c1","status":"PENDING"}`, "550e8400-e29b-41d4-a716-446655440000", true},
		{"empty body", ``, "", false},
		{"not json", `<html>busy</html>`, "", false},
		{"json array", `["a"]`, "", false},
		{"missing keys", `{"status": "PENDING"}`, "", false},
		{"id not a string", `{"id": 42}`, "", false},
		{"empty id string", `{"id": ""}`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TryParseJobID([]byte(tc.body))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
