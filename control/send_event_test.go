package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKVsSplitsOnFirstEquals(t *testing.T) {
	kvs, err := parseKVs([]string{"key=value", "url=http://x?a=b"})
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	assert.Equal(t, "key", kvs[0].Key)
	assert.Equal(t, "value", kvs[0].Value)
	assert.Equal(t, "http://x?a=b", kvs[1].Value)
}

func TestParseKVsRejectsMissingEquals(t *testing.T) {
	_, err := parseKVs([]string{"noequals"})
	assert.Error(t, err)
}
