package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"jane.doe@uni.edu":       "Jane Doe",
		"HOD_cse@uni.edu":        "Hod Cse",
		"registrar@uni.edu":      "Registrar",
		"a-b+c@uni.edu":          "A B C",
		"@uni.edu":               "@uni.edu",
		"":                       "",
		"  principal@school.in ": "Principal",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, DisplayName(in))
		})
	}
}
