package apiclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_AcceptsLooseJSON(t *testing.T) {
	var v struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":42.5,"c":null}`), &v))
	assert.Equal(t, Text("x"), v.A)
	assert.Equal(t, Text("42.5"), v.B)
	assert.Equal(t, Text(""), v.C)
}

func TestStringList_AcceptsStringOrArray(t *testing.T) {
	var v struct {
		A StringList `json:"a"`
		B StringList `json:"b"`
		C StringList `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":["x","y"],"b":"z","c":""}`), &v))
	assert.Equal(t, StringList{"x", "y"}, v.A)
	assert.Equal(t, StringList{"z"}, v.B)
	assert.Nil(t, v.C)
}

func TestParseTimestamp(t *testing.T) {
	cases := []string{
		"2026-03-01T10:30:00",
		"2026-03-01T10:30:00Z",
		"2026-03-01T10:30:00.123456",
		"2026-03-01 10:30:00",
		"Sun, 01 Mar 2026 10:30:00 GMT",
	}
	for _, raw := range cases {
		got, ok := parseTimestamp(raw)
		require.True(t, ok, raw)
		assert.Equal(t, 2026, got.Year(), raw)
		assert.Equal(t, 10, got.Hour(), raw)
	}

	_, ok := parseTimestamp("not a date")
	assert.False(t, ok)
	_, ok = parseTimestamp("")
	assert.False(t, ok)
}

func TestBookingNormalizedStatus(t *testing.T) {
	assert.Equal(t, StatusPending, Booking{}.NormalizedStatus())
	assert.Equal(t, StatusCancelled, Booking{Status: " Cancelled "}.NormalizedStatus())
}
