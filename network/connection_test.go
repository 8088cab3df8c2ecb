package network

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/fluid"
	"flownet/types"
)

// newTestConn 不经拓扑接线的裸连接
func newTestConn(label string, nf int) *Connection {
	return &Connection{
		Label:     label,
		X:         make([]float64, nf),
		FluidSet:  make([]bool, nf),
		FluidSpec: make([]float64, nf),
		Comp:      types.Unresolved(),
	}
}

func testScope(fluids ...string) *Scope {
	be := fluid.NewIdealBackend(fluids)
	return &Scope{Backend: be, Fluids: be.Fluids(), Log: log.New(io.Discard)}
}

func TestSpecCount(t *testing.T) {
	c := newTestConn("c1", 2)
	assert.Zero(t, c.SpecCount())

	c.SetM(5)
	c.SetP(2e5)
	c.SetH(2e5)
	assert.Equal(t, 3, c.SpecCount())

	c.SetFluidIndex(0, 0.7)
	c.FluidBalance = true
	assert.Equal(t, 5, c.SpecCount())

	c.SetT(300)
	assert.Equal(t, 6, c.SpecCount())
}

func TestConnectionEquations(t *testing.T) {
	sc := testScope("water", "N2")
	c := newTestConn("c1", 2)
	c.SetM(5)
	c.SetFluidIndex(0, 0.7)
	c.FluidBalance = true

	eqs := c.Equations(sc)
	require.Len(t, eqs, 3, "流量定值 + 组分定值 + 组分平衡")

	// 流量定值残差 m − spec
	c.M = 4
	res, err := eqs[0].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res, 1e-12)

	// 组分平衡残差 Σx − 1
	c.X[0], c.X[1] = 0.7, 0.2
	res, err = eqs[2].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, -0.1, res, 1e-12)

	ds, err := eqs[2].Jacobian(sc)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, types.VarFluid, d.Kind)
		assert.Equal(t, 1.0, d.Val)
	}
}

func TestTemperatureEquation(t *testing.T) {
	sc := testScope("water")
	c := newTestConn("c1", 1)
	c.SetT(283.15)
	c.X[0] = 1
	c.P = 1e5
	// h = cp·ΔT = 4180·10
	c.H = 41800

	eqs := c.Equations(sc)
	require.Len(t, eqs, 1)
	eq := eqs[0]
	assert.True(t, eq.Temperature, "温度方程必须带温度标记")

	res, err := eq.Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res, 1e-9)

	// 偏导：dT/dp = 0，dT/dh = 1/cp，dT/dx 数值微分
	ds, err := eq.Jacobian(sc)
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.InDelta(t, 0.0, ds[0].Val, 1e-12)
	assert.InDelta(t, 1.0/4180.0, ds[1].Val, 1e-9)

	// 越域时错误应带上连接标签
	c.H = -1e5
	_, err = eq.Residual(sc)
	var le *fluid.LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "c1", le.Conn, "查询错误应指明连接")
}

func TestTemperatureDerivativeFilter(t *testing.T) {
	sc := testScope("water", "N2")
	c := newTestConn("c1", 2)
	c.SetT(300)
	c.X[0], c.X[1] = 0.5, 0.5
	c.P, c.H = 1e5, 1e5
	eq := c.Equations(sc)[0]

	// 增量过滤：每个变量（p、h、两个组分）都被查询，
	// 全部未移动时不做任何数值微分
	queried := 0
	sc.Moved = func(*Connection, types.VarKind, int) bool {
		queried++
		return false
	}
	ds, err := eq.Jacobian(sc)
	require.NoError(t, err)
	assert.Empty(t, ds, "未移动的变量不应重算偏导")
	assert.Equal(t, 4, queried, "过滤器应逐变量被查询")

	// 只有焓移动时只重算焓的偏导
	sc.Moved = func(_ *Connection, k types.VarKind, _ int) bool {
		return k == types.VarEnthalpy
	}
	ds, err = eq.Jacobian(sc)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, types.VarEnthalpy, ds[0].Kind)

	// 无过滤时全量重算
	sc.Moved = nil
	ds, err = eq.Jacobian(sc)
	require.NoError(t, err)
	assert.Len(t, ds, 4)
}

func TestBusDerivativeFilter(t *testing.T) {
	sc := testScope("water")
	sc.Moved = func(*Connection, types.VarKind, int) bool { return false }
	ds := sc.FilterMoved([]Deriv{
		{Kind: types.VarMass, Val: 1},
		{Kind: types.VarEnthalpy, Val: -1},
	})
	assert.Empty(t, ds, "全部未移动时偏导列表应裁空")

	sc.Moved = nil
	ds = sc.FilterMoved([]Deriv{{Kind: types.VarMass, Val: 1}})
	assert.Len(t, ds, 1, "无过滤器时列表原样返回")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "design", Design.String())
	assert.Equal(t, "offdesign", Offdesign.String())
}
