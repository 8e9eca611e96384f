package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeArgsExtendAppends(t *testing.T) {
	out, err := MergeArgs(PolicyExtend, []string{"-x"}, []string{"-y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-x", "-y"}, out)
}

func TestMergeArgsOverrideReplaces(t *testing.T) {
	out, err := MergeArgs(PolicyOverride, []string{"-x"}, []string{"-y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-y"}, out)
}

func TestMergeArgsFixedRejectsOverride(t *testing.T) {
	_, err := MergeArgs(PolicyFixed, []string{"-x"}, []string{"-y"})
	assert.ErrorIs(t, err, ErrFixedFieldOverridden)
}

func TestMergeEnvExtendMergesOnTop(t *testing.T) {
	out, err := MergeEnv(PolicyExtend, "", map[string]string{"A": "1"}, map[string]string{"B": "2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, out)
}

func TestMergeEnvGlobalExtendAddsHostUnderneath(t *testing.T) {
	out, err := MergeEnv(PolicyExtend, PolicyExtend, map[string]string{"A": "1"}, nil, map[string]string{"PATH": "/bin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "PATH": "/bin"}, out)
}

func TestMergeScalarFixedRejectsOverride(t *testing.T) {
	_, err := MergeScalar(PolicyFixed, "cmd", "/bin/true", "/bin/false")
	assert.ErrorIs(t, err, ErrFixedFieldOverridden)
}

func TestSubstituteRelaxedFallthrough(t *testing.T) {
	out := Substitute("run ${CMD} for ${MISSING}", map[string]string{"CMD": "build"})
	assert.Equal(t, "run build for ${MISSING}", out)
}
