package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	var zero Range
	assert.False(t, zero.Valid(), "零值范围表示未提供")

	r := Range{Min: 1, Max: 10}
	assert.True(t, r.Valid())
	assert.Equal(t, 1.0, r.Clip(-5))
	assert.Equal(t, 10.0, r.Clip(20))
	assert.Equal(t, 5.0, r.Clip(5))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(0))
}

func TestVarKind(t *testing.T) {
	assert.Equal(t, "m", VarMass.String())
	assert.Equal(t, "p", VarPressure.String())
	assert.Equal(t, "h", VarEnthalpy.String())
	assert.Equal(t, "x", VarFluid.String())
	assert.Equal(t, 5, VarsPerConn(2))
}

func TestComposition(t *testing.T) {
	u := Unresolved()
	assert.False(t, u.IsResolved())

	c := Resolved([]float64{0.6, 0.2})
	require.True(t, c.IsResolved())
	n := c.Normalize()
	assert.InDelta(t, 0.75, n.Fractions()[0], 1e-12)
	assert.InDelta(t, 0.25, n.Fractions()[1], 1e-12)

	assert.True(t, n.Equal(Resolved([]float64{0.75, 0.25})))
	assert.False(t, n.Equal(Resolved([]float64{0.7, 0.3})))
	assert.False(t, n.Equal(Unresolved()), "未解析组成与任何组成都不等")
}

func TestErrors(t *testing.T) {
	err := Structuralf("连接 %s 悬空", "c1")
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "c1")

	nerr := Numericalf(7, "残差范数为 NaN/Inf")
	var ne *NumericalError
	require.ErrorAs(t, nerr, &ne)
	assert.Equal(t, 7, ne.Iter)
	assert.False(t, errors.As(nerr, &se), "数值错误不是结构错误")
}
