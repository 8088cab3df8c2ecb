package component

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/fluid"
	"flownet/network"
	"flownet/snapshot"
	"flownet/types"
)

func quietLog() *log.Logger { return log.New(io.Discard) }

// testNet 给定组分表的空网络
func testNet(t *testing.T, fluids ...string) *network.Network {
	t.Helper()
	return network.New(fluid.NewIdealBackend(fluids), quietLog())
}

func TestRegistry(t *testing.T) {
	c, err := New("pump", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", c.Label())
	assert.Equal(t, "pump", c.Category())

	_, err = New("reactor", "r1")
	var se *types.StructuralError
	require.ErrorAs(t, err, &se, "未注册类别应为结构错误")

	assert.Contains(t, Categories(), "combustion chamber")
	assert.Contains(t, Categories(), "separator")
}

func TestAttachErrors(t *testing.T) {
	nw := testNet(t, "water")
	src := NewSource("src")
	pump := NewPump("pump")
	require.NoError(t, nw.Add(src, pump))

	_, err := nw.Link("c1", src, 1, pump, 0)
	require.Error(t, err, "源没有出口 1")
	_, err = nw.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	// 入口已被占用
	src2 := NewSource("src2")
	require.NoError(t, nw.Add(src2))
	_, err = nw.Link("c2", src2, 0, pump, 0)
	require.Error(t, err, "端口不允许重复接线")

	// 出口悬空
	require.Error(t, pump.Connected(), "悬空端口应报结构错误")
}

func TestPumpEquations(t *testing.T) {
	nw := testNet(t, "water")
	src, pump, snk := NewSource("src"), NewPump("pump"), NewSink("snk")
	require.NoError(t, nw.Add(src, pump, snk))
	c1, err := nw.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	c2, err := nw.Link("c2", pump, 0, snk, 0)
	require.NoError(t, err)
	pump.SetP(1000)

	c1.M, c1.H = 5, 2e5
	c1.X[0] = 1
	c2.M, c2.H = 4, 2.002e5
	c2.X[0] = 1

	sc := nw.Scope()
	eqs := pump.Equations(sc)
	require.Len(t, eqs, 3, "质量 + 组分 + 功率")

	// 质量守恒残差 5 − 4 = 1
	res, err := eqs[0].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res, 1e-12)

	// 功率方程残差 5·(200200−200000) − 1000 = 0
	res, err = eqs[2].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res, 1e-9)

	// 功率方程偏导：dP/dm_in = Δh，dP/dh 两侧 ±m
	ds, err := eqs[2].Jacobian(sc)
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.InDelta(t, 200.0, ds[0].Val, 1e-9, "对入口流量的偏导")
	assert.InDelta(t, -5.0, ds[1].Val, 1e-12, "对入口焓的偏导")
	assert.InDelta(t, 5.0, ds[2].Val, 1e-12, "对出口焓的偏导")
}

func TestPumpDerivativeFilter(t *testing.T) {
	nw := testNet(t, "water")
	src, pump, snk := NewSource("src"), NewPump("pump"), NewSink("snk")
	require.NoError(t, nw.Add(src, pump, snk))
	_, err := nw.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	_, err = nw.Link("c2", pump, 0, snk, 0)
	require.NoError(t, err)
	pump.SetP(1000)

	sc := nw.Scope()
	sc.Moved = func(*network.Connection, types.VarKind, int) bool { return false }
	eqs := pump.Equations(sc)
	ds, err := eqs[2].Jacobian(sc)
	require.NoError(t, err)
	assert.Empty(t, ds, "未移动的变量不应进入功率方程偏导")

	sc.Moved = func(_ *network.Connection, k types.VarKind, _ int) bool {
		return k == types.VarMass
	}
	ds, err = eqs[2].Jacobian(sc)
	require.NoError(t, err)
	require.Len(t, ds, 1, "只有流量移动时只保留流量列")
	assert.Equal(t, types.VarMass, ds[0].Kind)
}

func TestSeparatorEquations(t *testing.T) {
	nw := testNet(t, "water", "N2")
	src := NewSource("src")
	sep := NewSeparator("sep", 2)
	s1, s2 := NewSink("s1"), NewSink("s2")
	require.NoError(t, nw.Add(src, sep, s1, s2))
	c1, err := nw.Link("c1", src, 0, sep, 0)
	require.NoError(t, err)
	c2, err := nw.Link("c2", sep, 0, s1, 0)
	require.NoError(t, err)
	c3, err := nw.Link("c3", sep, 1, s2, 0)
	require.NoError(t, err)

	sc := nw.Scope()
	eqs := sep.Equations(sc)
	// 质量 + 2 组分物料平衡 + 2 温度相等 + 2 压力相等
	require.Len(t, eqs, 7)

	// 完全分离的一致状态：4 kg/s 60/40 混合物拆成纯组分流
	c1.M, c1.P = 4, 2e5
	c1.X[0], c1.X[1] = 0.6, 0.4
	c2.M, c2.P = 2.4, 2e5
	c2.X[0] = 1
	c3.M, c3.P = 1.6, 2e5
	c3.X[1] = 1
	// 温度一致：h = cp·ΔT，ΔT = 20 K
	c1.H = (0.6*4180 + 0.4*1040) * 20
	c2.H = 4180 * 20
	c3.H = 1040 * 20

	for i, eq := range eqs {
		res, err := eq.Residual(sc)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, res, 1e-9, "方程 %d (%s) 应闭合", i, eq.Label)
	}

	// 温度方程标记与数值偏导
	assert.True(t, eqs[3].Temperature)
	ds, err := eqs[3].Jacobian(sc)
	require.NoError(t, err)
	assert.NotEmpty(t, ds)

	// 分离器不透传组成
	require.NoError(t, nw.SetFluid(c1, map[string]float64{"water": 0.6, "N2": 0.4}))
	nw.PropagateFluids(sc)
	assert.False(t, c2.Comp.IsResolved(), "出口组成由方程组决定")
}

func TestValvePreprocess(t *testing.T) {
	nw := testNet(t, "water")
	src, valve, snk := NewSource("src"), NewValve("valve"), NewSink("snk")
	require.NoError(t, nw.Add(src, valve, snk))
	_, err := nw.Link("c1", src, 0, valve, 0)
	require.NoError(t, err)
	_, err = nw.Link("c2", valve, 0, snk, 0)
	require.NoError(t, err)
	valve.SetPr(0.5)

	ds := snapshot.New(nw.Fluids)
	ds.Connections["c1"] = snapshot.ConnRecord{M: 2, P: 4e5, H: 3e5, Fluid: []float64{1}}
	ds.Connections["c2"] = snapshot.ConnRecord{M: 2, P: 2e5, H: 3e5, Fluid: []float64{1}}

	require.NoError(t, valve.Preprocess(network.Offdesign, ds))
	assert.False(t, valve.PrSet, "压比方程应被替换")
	assert.True(t, valve.ZetaSet)
	assert.InDelta(t, 5e4, valve.ZetaSpec, 1e-9, "zeta = Δp/m²")

	// 设计工况下为空操作
	valve2 := NewValve("valve2")
	valve2.SetPr(0.5)
	require.NoError(t, valve2.Preprocess(network.Design, ds))
	assert.True(t, valve2.PrSet)

	// 快照缺连接记录
	valve.PrSet, valve.ZetaSet = true, false
	empty := snapshot.New(nw.Fluids)
	var se *types.StructuralError
	require.ErrorAs(t, valve.Preprocess(network.Offdesign, empty), &se)

	// 设计流量为零无法导出 zeta
	zero := snapshot.New(nw.Fluids)
	zero.Connections["c1"] = snapshot.ConnRecord{M: 0, P: 4e5, H: 3e5, Fluid: []float64{1}}
	zero.Connections["c2"] = snapshot.ConnRecord{M: 0, P: 2e5, H: 3e5, Fluid: []float64{1}}
	require.ErrorAs(t, valve.Preprocess(network.Offdesign, zero), &se)
}

func TestSplitterPropagation(t *testing.T) {
	nw := testNet(t, "water", "N2")
	src := NewSource("src")
	sp := NewSplitter("split", 2)
	s1, s2 := NewSink("s1"), NewSink("s2")
	require.NoError(t, nw.Add(src, sp, s1, s2))
	c1, err := nw.Link("c1", src, 0, sp, 0)
	require.NoError(t, err)
	c2, err := nw.Link("c2", sp, 0, s1, 0)
	require.NoError(t, err)
	c3, err := nw.Link("c3", sp, 1, s2, 0)
	require.NoError(t, err)

	require.NoError(t, nw.SetFluid(c1, map[string]float64{"water": 0.7, "N2": 0.3}))
	nw.PropagateFluids(nw.Scope())

	require.True(t, c2.Comp.IsResolved(), "出口组成应随入口解析")
	require.True(t, c3.Comp.IsResolved())
	assert.InDelta(t, 0.7, c2.Comp.Fractions()[0], 1e-12)
	assert.InDelta(t, 0.3, c3.Comp.Fractions()[1], 1e-12)
}

func TestMergePropagation(t *testing.T) {
	build := func(x1, x2 map[string]float64) (*network.Network, *network.Connection) {
		nw := testNet(t, "water", "N2")
		a, b := NewSource("a"), NewSource("b")
		mg := NewMerge("merge", 2)
		snk := NewSink("snk")
		require.NoError(t, nw.Add(a, b, mg, snk))
		c1, err := nw.Link("c1", a, 0, mg, 0)
		require.NoError(t, err)
		c2, err := nw.Link("c2", b, 0, mg, 1)
		require.NoError(t, err)
		c3, err := nw.Link("c3", mg, 0, snk, 0)
		require.NoError(t, err)
		require.NoError(t, nw.SetFluid(c1, x1))
		require.NoError(t, nw.SetFluid(c2, x2))
		nw.PropagateFluids(nw.Scope())
		return nw, c3
	}

	// 两入口组成一致：出口随之解析
	same := map[string]float64{"water": 1, "N2": 0}
	_, c3 := build(same, same)
	require.True(t, c3.Comp.IsResolved(), "一致入口应透传")
	assert.InDelta(t, 1.0, c3.Comp.Fractions()[0], 1e-12)

	// 组成不一致：出口留给混合方程求解
	_, c3 = build(
		map[string]float64{"water": 1, "N2": 0},
		map[string]float64{"water": 0, "N2": 1})
	assert.False(t, c3.Comp.IsResolved(), "不一致入口不得臆断出口组成")
}

// 燃烧组分表
func combustionNet(t *testing.T) (*network.Network, *CombustionChamber, [2]*network.Connection, *network.Connection) {
	t.Helper()
	nw := testNet(t, "CH4", "O2", "CO2", "H2O", "N2")
	air, gas := NewSource("air"), NewSource("gas")
	cc := NewCombustionChamber("cc")
	snk := NewSink("stack")
	require.NoError(t, nw.Add(air, gas, cc, snk))
	c1, err := nw.Link("c1", air, 0, cc, 0)
	require.NoError(t, err)
	c2, err := nw.Link("c2", gas, 0, cc, 1)
	require.NoError(t, err)
	c3, err := nw.Link("c3", cc, 0, snk, 0)
	require.NoError(t, err)
	return nw, cc, [2]*network.Connection{c1, c2}, c3
}

func TestCombustionReactionBalance(t *testing.T) {
	nw, cc, in, out := combustionNet(t)
	sc := nw.Scope()

	// 入口：4 kg/s 纯氧 + 1 kg/s 纯甲烷
	in[0].M = 4
	in[0].X[1] = 1
	in[1].M = 1
	in[1].X[0] = 1

	// 出口按化学计量构造：燃料烧尽，余氧 + 产物
	o2Left := 4 - ratioO2
	total := o2Left + ratioCO2 + ratioH2O
	out.M = total
	out.X[1] = o2Left / total
	out.X[2] = ratioCO2 / total
	out.X[3] = ratioH2O / total

	eqs := cc.Equations(sc)
	// 5 条反应平衡 + 能量 + 2 条压力相等
	require.Len(t, eqs, 8)
	for i := 0; i < 5; i++ {
		res, err := eqs[i].Residual(sc)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, res, 1e-9, "组分 %s 的反应平衡应闭合", nw.Fluids[i])
	}

	// 能量守恒：按残差定义反解出口焓后残差应为零
	in[0].H, in[1].H = 3e5, 1e5
	out.H = (in[0].M*in[0].H + in[1].M*in[1].H + lhvCH4*in[1].M) / out.M
	res, err := eqs[5].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res, 1e-6)
}

func TestCombustionLambda(t *testing.T) {
	nw, cc, in, _ := combustionNet(t)
	sc := nw.Scope()
	cc.SetLambda(2.0)

	// λ=2：供氧为化学计量的两倍
	in[0].M = 2 * ratioO2
	in[0].X[1] = 1
	in[1].M = 1
	in[1].X[0] = 1

	eqs := cc.Equations(sc)
	require.Len(t, eqs, 9, "lambda 参数追加一条方程")
	res, err := eqs[8].Residual(sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res, 1e-9, "供氧两倍时 λ=2 残差应闭合")
}

func TestCombustionFluePropagation(t *testing.T) {
	nw, _, in, out := combustionNet(t)
	require.NoError(t, nw.SetFluid(in[0], map[string]float64{
		"CH4": 0, "O2": 0.23, "CO2": 0, "H2O": 0, "N2": 0.77,
	}))
	nw.PropagateFluids(nw.Scope())

	require.True(t, out.Comp.IsResolved(), "任一入口解析后出口合成烟气组成")
	sum := 0.0
	for _, x := range out.Comp.Fractions() {
		sum += x
	}
	assert.InDelta(t, 1.0, sum, 1e-12, "烟气组成应归一化")
	assert.Zero(t, out.Comp.Fractions()[0], "烟气不含燃料")
}

func TestCombustionRequiresReactants(t *testing.T) {
	nw := testNet(t, "water")
	a, b := NewSource("a"), NewSource("b")
	cc := NewCombustionChamber("cc")
	snk := NewSink("snk")
	require.NoError(t, nw.Add(a, b, cc, snk))
	_, err := nw.Link("c1", a, 0, cc, 0)
	require.NoError(t, err)
	_, err = nw.Link("c2", b, 0, cc, 1)
	require.NoError(t, err)
	_, err = nw.Link("c3", cc, 0, snk, 0)
	require.NoError(t, err)

	sc := nw.Scope()
	eqs := cc.Equations(sc)
	_, err = eqs[0].Residual(sc)
	var se *types.StructuralError
	require.ErrorAs(t, err, &se, "组分表缺反应组分应为结构错误")
}

func TestBusEquation(t *testing.T) {
	nw := testNet(t, "water")
	src, pump, snk := NewSource("src"), NewPump("pump"), NewSink("snk")
	require.NoError(t, nw.Add(src, pump, snk))
	c1, err := nw.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	c2, err := nw.Link("c2", pump, 0, snk, 0)
	require.NoError(t, err)

	bus := network.NewBus("power")
	bus.Add(pump)
	nw.AddBus(bus)

	c1.M, c1.H = 5, 2e5
	c2.H = 2.002e5
	assert.InDelta(t, 1000.0, bus.Flow(), 1e-9, "母线能量流 = m·Δh")

	assert.Empty(t, bus.Equations(nw.Scope()), "未给定功率不贡献方程")
	bus.SetP(1000)
	eqs := bus.Equations(nw.Scope())
	require.Len(t, eqs, 1)
	res, err := eqs[0].Residual(nw.Scope())
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res, 1e-9)
}

func TestHeatExchangerPreprocess(t *testing.T) {
	nw := testNet(t, "water")
	src, hx, snk := NewSource("src"), NewSimpleHeatExchanger("hx"), NewSink("snk")
	require.NoError(t, nw.Add(src, hx, snk))
	_, err := nw.Link("c1", src, 0, hx, 0)
	require.NoError(t, err)
	_, err = nw.Link("c2", hx, 0, snk, 0)
	require.NoError(t, err)
	hx.SetQ(100e3)
	hx.SetDp(1e5)

	ds := snapshot.New(nw.Fluids)
	ds.Connections["c1"] = snapshot.ConnRecord{M: 4, P: 5e5, H: 2e5, Fluid: []float64{1}}
	ds.Connections["c2"] = snapshot.ConnRecord{M: 4, P: 4e5, H: 2.25e5, Fluid: []float64{1}}

	require.NoError(t, hx.Preprocess(network.Offdesign, ds))
	assert.False(t, hx.DpSet, "压降方程应被替换")
	assert.True(t, hx.ZetaSet)
	assert.InDelta(t, 1e5/16.0, hx.ZetaSpec, 1e-9)
	assert.True(t, hx.QSet, "换热量定值不受预处理影响")
}
