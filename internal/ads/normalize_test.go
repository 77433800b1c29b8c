package ads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.23e12", "1230000000000", true},
		{"1.23E+12", "1230000000000", true},
		{"1230000000000", "1230000000000", true},
		{"1230000000000.0", "1230000000000", true},
		{" 120208 ", "120208", true},
		{"007", "7", true},
		{"12345", "12345", true},
		{"12.5", "12.5", true},
		{"abc_campaign", "abc_campaign", true},
		{"", "", false},
		{"nan", "", false},
		{"None", "", false},
		{"null", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeID(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeID_LargeIDExact(t *testing.T) {
	// beyond float64's exact integer range
	got, ok := NormalizeID("120212345678901234")
	assert.True(t, ok)
	assert.Equal(t, "120212345678901234", got)

	got, _ = NormalizeID("1.20212345678901234e17")
	assert.Equal(t, "120212345678901234", got)
}

func TestKeyID(t *testing.T) {
	assert.Equal(t, UnknownID, KeyID(""))
	assert.Equal(t, UnknownID, KeyID("  "))
	assert.Equal(t, "42", KeyID("4.2e1"))
}

func TestNormalizeHourWindow(t *testing.T) {
	cases := map[string]string{
		"00:00:00 - 00:59:59": "00:00:00 - 00:59:59",
		"9":                   "09:00:00 - 09:59:59",
		"14:00-15:00":         "14:00:00 - 14:59:59",
		"hour 25":             "01:00:00 - 01:59:59",
	}
	for in, want := range cases {
		got, ok := NormalizeHourWindow(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := NormalizeHourWindow("all day")
	assert.False(t, ok)
}
