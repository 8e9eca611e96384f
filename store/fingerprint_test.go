package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministicForSameSettingsAndMetrics(t *testing.T) {
	settings := []KV{{Key: "CLOUD", Value: "GCP"}}
	metrics := []KV{{Key: "CPU", Value: "4"}}

	a := Fingerprint(settings, metrics)
	b := Fingerprint(settings, metrics)
	assert.Equal(t, a, b, "fingerprint must be deterministic for identical settings/metrics")
}

func TestFingerprintDiffersOnValueChange(t *testing.T) {
	base := Fingerprint([]KV{{Key: "CLOUD", Value: "GCP"}}, nil)
	changed := Fingerprint([]KV{{Key: "CLOUD", Value: "AWS"}}, nil)
	assert.NotEqual(t, base, changed)
}

func TestFingerprintDiffersOnOrder(t *testing.T) {
	a := Fingerprint([]KV{{Key: "A", Value: "1"}, {Key: "B", Value: "2"}}, nil)
	b := Fingerprint([]KV{{Key: "B", Value: "2"}, {Key: "A", Value: "1"}}, nil)
	assert.NotEqual(t, a, b)
}
