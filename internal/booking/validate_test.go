package booking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequest(t *testing.T) {
	mutate := func(fn func(r *Request)) Request {
		r := validRequest()
		fn(&r)
		return r
	}

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", validRequest(), false},
		{"name too short", mutate(func(r *Request) { r.Patient.Name = "A" }), true},
		{"name too long", mutate(func(r *Request) { r.Patient.Name = strings.Repeat("a", 101) }), true},
		{"name only whitespace", mutate(func(r *Request) { r.Patient.Name = "   " }), true},
		{"email missing at", mutate(func(r *Request) { r.Patient.Email = "asha.example.com" }), true},
		{"email missing domain dot", mutate(func(r *Request) { r.Patient.Email = "asha@example" }), true},
		{"email with spaces", mutate(func(r *Request) { r.Patient.Email = "asha @example.com" }), true},
		{"phone too few digits", mutate(func(r *Request) { r.Patient.Phone = "12345" }), true},
		{"phone with letters", mutate(func(r *Request) { r.Patient.Phone = "98765abcde" }), true},
		{"phone with separators", mutate(func(r *Request) { r.Patient.Phone = "+91 (731) 555-0100" }), false},
		{"reason too short", mutate(func(r *Request) { r.Reason = "sick" }), true},
		{"reason too long", mutate(func(r *Request) { r.Reason = strings.Repeat("x", 501) }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
