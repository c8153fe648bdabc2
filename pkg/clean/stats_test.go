package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIQRBounds(t *testing.T) {
	tests := []struct {
		name         string
		values       []float64
		lower, upper float64
	}{
		{name: "outlier example", values: []float64{10, 12, 11, 13, 1000}, lower: 8, upper: 16},
		{name: "four values", values: []float64{1, 2, 3, 4}, lower: -0.5, upper: 5.5},
		{name: "constant", values: []float64{5, 5, 5, 5}, lower: 5, upper: 5},
		{name: "single", values: []float64{3}, lower: 3, upper: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower, upper := IQRBounds(tt.values)
			assert.InDelta(t, tt.lower, lower, 1e-9)
			assert.InDelta(t, tt.upper, upper, 1e-9)
		})
	}
}

func TestIQRBounds_DoesNotSortInput(t *testing.T) {
	values := []float64{3, 1, 2}
	IQRBounds(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		ok    bool
	}{
		{"2024-02-15", true},
		{"2024/02/15", true},
		{"02/15/2024", true},
		{"2/15/2024", true},
		{"15 Feb 2024", true},
		{"Feb 15, 2024", true},
		{"February 15, 2024", true},
		{"20240215", true},
		{"02152024", true},
		{"February 15 2024", true},
		{"2024-02-15 000000", true},
		{"  2024-02-15 ", true},
		{"2024-02-30", false},
		{"tomorrow", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, want.Equal(got), "got %v", got)
			}
		})
	}

	got, ok := ParseDate("2024-02-15T10:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, 10, got.Hour())
}
