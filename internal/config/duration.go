// Package config holds the small parsing and env-loading helpers shared by
// the head, worker, and control binaries.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseDuration parses the duration literals "<n>ms", "<n>s"/"<n>sec",
// "<n>m"/"<n>min", "<n>h"/"<n>houres". Parsing is case-insensitive after
// trimming whitespace. The worker's --request-interval, --idle-timeout and
// --available-timeout flags are not parsed by this function; they take Go
// duration syntax (e.g. "90s", "5m"), so "sec", "min" and "houres" are not
// accepted there.
func ParseDuration(literal string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(literal))
	if s == "" {
		return 0, errors.Errorf("empty duration literal")
	}

	unit, unitLen, err := durationUnit(s)
	if err != nil {
		return 0, err
	}

	numPart := strings.TrimSpace(s[:len(s)-unitLen])
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration literal %q", literal)
	}

	return time.Duration(n * float64(unit)), nil
}

func durationUnit(s string) (time.Duration, int, error) {
	switch {
	case strings.HasSuffix(s, "houres"):
		return time.Hour, len("houres"), nil
	case strings.HasSuffix(s, "h"):
		return time.Hour, len("h"), nil
	case strings.HasSuffix(s, "min"):
		return time.Minute, len("min"), nil
	case strings.HasSuffix(s, "m"):
		return time.Minute, len("m"), nil
	case strings.HasSuffix(s, "ms"):
		return time.Millisecond, len("ms"), nil
	case strings.HasSuffix(s, "sec"):
		return time.Second, len("sec"), nil
	case strings.HasSuffix(s, "s"):
		return time.Second, len("s"), nil
	default:
		return 0, 0, errors.Errorf("duration literal %q has no recognized unit (ms, s, sec, m, min, h, houres)", s)
	}
}

// MustParseDuration parses literal or panics; used for compile-time defaults.
func MustParseDuration(literal string) time.Duration {
	d, err := ParseDuration(literal)
	if err != nil {
		panic(err)
	}
	return d
}
