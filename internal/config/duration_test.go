package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		literal string
		want    time.Duration
	}{
		{"500ms", 500 * time.Millisecond},
		{"5s", 5 * time.Second},
		{"5sec", 5 * time.Second},
		{"5m", 5 * time.Minute},
		{"5min", 5 * time.Minute},
		{"1h", time.Hour},
		{"1houres", time.Hour},
		{"  5S  ", 5 * time.Second},
		{"2.5m", 150 * time.Second},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.literal)
		require.NoError(t, err, c.literal)
		assert.Equal(t, c.want, got, c.literal)
	}
}

func TestParseDurationErrors(t *testing.T) {
	for _, literal := range []string{"", "5", "abc", "5xyz"} {
		_, err := ParseDuration(literal)
		assert.Error(t, err, literal)
	}
}
