package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		frac     float64
		decimals int
		want     string
	}{
		{0.8, 0, "80%"},
		{0.15, 0, "15%"},
		{0.001, 1, "0.1%"},
		{0.3333, 1, "33.3%"},
		{1, 0, "100%"},
		{0, 1, "0.0%"},
	}
	for _, tt := range tests {
		if got := Percent(tt.frac, tt.decimals); got != tt.want {
			t.Errorf("Percent(%v, %d) = %q, want %q", tt.frac, tt.decimals, got, tt.want)
		}
	}
}

func TestSignedPercent(t *testing.T) {
	assert.Equal(t, "+15.0%", SignedPercent(0.15, 1))
	assert.Equal(t, "-2.5%", SignedPercent(-0.025, 1))
	assert.Equal(t, "+0.0%", SignedPercent(0, 1))
}

func TestThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := Thousands(tt.in); got != tt.want {
			t.Errorf("Thousands(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join(nil))
	assert.Equal(t, "a", Join([]string{"a"}))
	assert.Equal(t, "a and b", Join([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", Join([]string{"a", "b", "c"}))
}

func TestListAndPlain(t *testing.T) {
	md := List(Bold("one"), "two")
	assert.Equal(t, "- **one**\n- two", md)
	assert.Equal(t, "- one\n- two", Plain(md))
}

func TestHTML(t *testing.T) {
	out, err := HTML("Self-serve " + Bold("55%"))
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>55%</strong>")
}
