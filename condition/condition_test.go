package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateEmptyIsAlwaysTrue(t *testing.T) {
	ok, err := Evaluate("", map[string]string{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateStringEquality(t *testing.T) {
	// spec scenario S2: condition ${CLOUD}=="GCP"
	ok, err := Evaluate(`${CLOUD}=="GCP"`, map[string]string{"CLOUD": "AWS"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate(`${CLOUD}=="GCP"`, map[string]string{"CLOUD": "GCP"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateNumericEquality(t *testing.T) {
	// spec scenario S1: condition="${X}==1"
	ok, err := Evaluate(`${X}==1`, map[string]string{"X": "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(`${X}==1`, map[string]string{"X": "2"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateLogicalOperators(t *testing.T) {
	metrics := map[string]string{"A": "true", "B": "false"}
	ok, err := Evaluate(`${A} && !${B}`, metrics)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(`${A} || ${B}`, metrics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateArithmeticAndRelational(t *testing.T) {
	metrics := map[string]string{"CPU": "3", "MAX": "4"}
	ok, err := Evaluate(`${CPU} + 1 <= ${MAX}`, metrics)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(`${CPU} * 2 > ${MAX}`, metrics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateStringConcat(t *testing.T) {
	ok, err := Evaluate(`${GREETING} + "!" == "hi!"`, map[string]string{"GREETING": "hi"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateUnknownVariable(t *testing.T) {
	_, err := Evaluate(`${MISSING} == "x"`, map[string]string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownVariable)
}

func TestEvaluateDivByZero(t *testing.T) {
	_, err := Evaluate(`1 / ${ZERO} > 0`, map[string]string{"ZERO": "0"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivByZero)
}

func TestEvaluateParseError(t *testing.T) {
	_, err := Evaluate(`${A} &&`, map[string]string{"A": "true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestEvaluateTypeError(t *testing.T) {
	_, err := Evaluate(`${A} == "x"`, map[string]string{"A": "maybe"})
	require.NoError(t, err) // both sides string kind, no coercion needed
	_, err = Evaluate(`${A} < 1`, map[string]string{"A": "not-a-number"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrType)
}

func TestEvaluateParentheses(t *testing.T) {
	metrics := map[string]string{"A": "false", "B": "true", "C": "true"}
	ok, err := Evaluate(`${A} || (${B} && ${C})`, metrics)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompiledReuse(t *testing.T) {
	c, err := Parse(`${X} == 1`)
	require.NoError(t, err)

	ok, err := c.Evaluate(map[string]string{"X": "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Evaluate(map[string]string{"X": "2"})
	require.NoError(t, err)
	assert.False(t, ok)
}
