package flownet

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flownet/component"
	"flownet/fluid"
	"flownet/network"
	"flownet/snapshot"
	"flownet/solver"
)

// TestPlantWorkflow 完整流程：设计工况求解 → 设计快照落盘 →
// 读回快照求解运行工况。
func TestPlantWorkflow(t *testing.T) {
	logger := log.New(io.Discard)
	plant := New(fluid.NewIdealBackend([]string{"water"}), logger)

	src := component.NewSource("feed")
	pump := component.NewPump("pump")
	valve := component.NewValve("valve")
	snk := component.NewSink("drain")
	require.NoError(t, plant.Add(src, pump, valve, snk))

	c1, err := plant.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	c2, err := plant.Link("c2", pump, 0, valve, 0)
	require.NoError(t, err)
	c3, err := plant.Link("c3", valve, 0, snk, 0)
	require.NoError(t, err)

	c1.SetM(5)
	c1.SetP(2e5)
	c1.SetH(2e5)
	require.NoError(t, plant.SetFluid(c1, map[string]float64{"water": 1}))
	c2.SetP(6e5)
	pump.SetP(2000)
	valve.SetPr(0.5)

	// 设计工况
	opt := solver.DefaultOptions()
	opt.Log = logger
	res, err := plant.Solve(opt)
	require.NoError(t, err)
	require.Equal(t, solver.Converged, res.State, "设计工况应收敛")
	assert.InDelta(t, 200400.0, c2.H, 1.0, "泵出口焓 = 入口焓 + P/m")
	assert.InDelta(t, 3e5, c3.P, 1.0, "阀出口压力 = 压比 × 入口压力")
	assert.InDelta(t, 200400.0, c3.H, 1.0, "节流等焓")

	// 快照落盘再读回
	path := filepath.Join(t.TempDir(), "design.toml")
	require.NoError(t, plant.Snapshot().Save(path))
	ds, err := snapshot.Load(path, plant.Fluids)
	require.NoError(t, err)
	rec, ok := ds.Conn("c2")
	require.True(t, ok)
	assert.InDelta(t, 6e5, rec.P, 1.0)

	// 运行工况：流量减半，阀压降由设计点导出的 zeta 决定
	// zeta = (6e5−3e5)/5² = 1.2e4 → Δp = 1.2e4·2.5² = 7.5e4
	c1.SetM(2.5)
	opt.Mode = network.Offdesign
	opt.DesignSnapshot = ds
	res, err = plant.Solve(opt)
	require.NoError(t, err)
	require.Equal(t, solver.Converged, res.State, "运行工况应收敛")
	assert.InDelta(t, 5.25e5, c3.P, 1.0, "运行工况阀出口压力")
	assert.InDelta(t, 200800.0, c2.H, 1.0, "运行工况泵出口焓")
	assert.Positive(t, res.History.Len(), "收敛历史应有记录")
}

// TestInitPrevious 二次求解复用上次收敛值
func TestInitPrevious(t *testing.T) {
	logger := log.New(io.Discard)
	plant := New(fluid.NewIdealBackend([]string{"water"}), logger)

	src := component.NewSource("feed")
	pump := component.NewPump("pump")
	snk := component.NewSink("drain")
	require.NoError(t, plant.Add(src, pump, snk))
	c1, err := plant.Link("c1", src, 0, pump, 0)
	require.NoError(t, err)
	c2, err := plant.Link("c2", pump, 0, snk, 0)
	require.NoError(t, err)

	c1.SetM(5)
	c1.SetP(2e5)
	c1.SetH(2e5)
	require.NoError(t, plant.SetFluid(c1, map[string]float64{"water": 1}))
	c2.SetP(6e5)
	pump.SetP(1000)

	opt := solver.DefaultOptions()
	opt.Log = logger
	res, err := plant.Solve(opt)
	require.NoError(t, err)
	require.Equal(t, solver.Converged, res.State)
	assert.True(t, plant.Solved)

	// 微调定值后热启动
	pump.SetP(1500)
	opt.InitPrevious = true
	res, err = plant.Solve(opt)
	require.NoError(t, err)
	require.Equal(t, solver.Converged, res.State)
	assert.InDelta(t, 200300.0, c2.H, 1.0)
}
