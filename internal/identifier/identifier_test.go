package identifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IsSimple(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected bool
	}{
		{input: "fhirdata", expected: true},
		{input: "_hidden", expected: true},
		{input: "sv_tenant_id2$", expected: true},
		{input: "9users", expected: false},
		{input: "", expected: false},
		{input: "Patient", expected: false},
		{input: "fhir data", expected: false},
		{input: "patient.resources", expected: false},
	} {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsSimple(tc.input))
		})
	}
}

func Test_Validate(t *testing.T) {
	assert.NoError(t, Validate("patient_resources"))
	assert.NoError(t, Validate(strings.Repeat("a", MaxLength)))

	err := Validate("Patient")
	assert.ErrorIs(t, err, ErrInvalid)

	err = Validate(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "exceeds")
}
