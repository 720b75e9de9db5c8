package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		name  string
		input string
		scale int32
		want  string
	}{
		{"positive midpoint rounds up", "1.005", ScaleMonetary, "1.01"},
		{"negative midpoint rounds away", "-1.555", ScaleMonetary, "-1.56"},
		{"no rounding needed", "2.50", ScaleMonetary, "2.50"},
		{"expand scale", "3", ScaleStandard, "3.0000"},
		{"truncating digits", "0.12344", ScaleStandard, "0.1234"},
		{"midpoint at standard scale", "0.00005", ScaleStandard, "0.0001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Round(tt.input, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMonetary(t *testing.T) {
	got, err := ToMonetary("99.9999")
	require.NoError(t, err)
	assert.Equal(t, "100.00", got)
}

func TestAddSub(t *testing.T) {
	sum, err := Add("0.1", "0.2", ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, "0.3000", sum)

	// a + b - b == a at a fixed scale
	back, err := Sub(sum, "0.2", ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, "0.1000", back)

	// commutativity
	ab, err := Add("12.34", "56.78", ScaleStandard)
	require.NoError(t, err)
	ba, err := Add("56.78", "12.34", ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestMulDiv(t *testing.T) {
	product, err := Mul("1000.0000", "0.12", ScaleIntermediate)
	require.NoError(t, err)
	assert.Equal(t, "120.00000000", product)

	quotient, err := Div(product, "365", ScaleIntermediate)
	require.NoError(t, err)
	assert.Equal(t, "0.32876712", quotient)
}

func TestDivByZero(t *testing.T) {
	_, err := Div("1", "0", ScaleStandard)
	require.Error(t, err)
	assert.True(t, apperror.IsDivisionByZero(err))

	_, err = Mod("1", "0.00", ScaleStandard)
	require.Error(t, err)
	assert.True(t, apperror.IsDivisionByZero(err))
}

func TestInvalidOperand(t *testing.T) {
	_, err := Add("abc", "1", ScaleStandard)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	_, err = Compare("1", "")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestMod(t *testing.T) {
	rem, err := Mod("10.5", "3", ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, "1.5000", rem)
}

func TestPowAbs(t *testing.T) {
	p, err := Pow("2", 10, ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, "1024.0000", p)

	a, err := Abs("-5.5", ScaleStandard)
	require.NoError(t, err)
	assert.Equal(t, "5.5000", a)
}

func TestComparisons(t *testing.T) {
	c, err := Compare("1.0", "1.0000")
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	gt, err := GreaterThan("2", "1")
	require.NoError(t, err)
	assert.True(t, gt)

	lte, err := LessThanOrEqual("1", "1.0")
	require.NoError(t, err)
	assert.True(t, lte)

	eq, err := Equals("0.5", "0.50")
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestPredicates(t *testing.T) {
	zero, err := IsZero("0.0000")
	require.NoError(t, err)
	assert.True(t, zero)

	pos, err := IsPositive("0.0001")
	require.NoError(t, err)
	assert.True(t, pos)

	pos, err = IsPositive("-1")
	require.NoError(t, err)
	assert.False(t, pos)
}

func TestZeroAndFromInt(t *testing.T) {
	assert.Equal(t, "0.00", Zero(ScaleMonetary))
	assert.Equal(t, "0.0000", Zero(ScaleStandard))
	assert.Equal(t, "30.0000", FromInt(30))
}
