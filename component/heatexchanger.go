package component

import (
	"math"

	"flownet/network"
	"flownet/snapshot"
	"flownet/types"
)

// SimpleHeatExchanger 简单换热器
// 单流路，给定换热量与压降侧参数；运行工况由设计点导出 zeta。
type SimpleHeatExchanger struct {
	Base
	QSet     bool
	QSpec    float64 // 换热量 (W)，正值加热
	PrSet    bool
	PrSpec   float64
	DpSet    bool
	DpSpec   float64 // 压降 (Pa)
	ZetaSet  bool
	ZetaSpec float64
}

// NewSimpleHeatExchanger 构造简单换热器
func NewSimpleHeatExchanger(label string) *SimpleHeatExchanger {
	return &SimpleHeatExchanger{Base: newBase(label, "heat exchanger simple", 1, 1)}
}

// SetQ 设置换热量定值
func (h *SimpleHeatExchanger) SetQ(v float64) { h.QSet, h.QSpec = true, v }

// SetPr 设置压比定值
func (h *SimpleHeatExchanger) SetPr(v float64) { h.PrSet, h.PrSpec = true, v }

// SetDp 设置压降定值
func (h *SimpleHeatExchanger) SetDp(v float64) { h.DpSet, h.DpSpec = true, v }

// SetZeta 设置阻力系数定值
func (h *SimpleHeatExchanger) SetZeta(v float64) { h.ZetaSet, h.ZetaSpec = true, v }

// EnergyFlow 能量流 Q = m·(h_out − h_in) 及其偏导
func (h *SimpleHeatExchanger) EnergyFlow() (float64, []network.Deriv) {
	in, out := h.in[0], h.out[0]
	q := in.M * (out.H - in.H)
	return q, []network.Deriv{
		{Conn: in, Kind: types.VarMass, Val: out.H - in.H},
		{Conn: in, Kind: types.VarEnthalpy, Val: -in.M},
		{Conn: out, Kind: types.VarEnthalpy, Val: in.M},
	}
}

// Preprocess 运行工况预处理：压比/压降换成 zeta 方程
func (h *SimpleHeatExchanger) Preprocess(mode network.Mode, ds *snapshot.Data) error {
	if mode != network.Offdesign || (!h.PrSet && !h.DpSet) {
		return nil
	}
	inRec, ok := ds.Conn(h.in[0].Label)
	if !ok {
		return types.Structuralf("设计快照缺少连接 %s", h.in[0].Label)
	}
	outRec, ok := ds.Conn(h.out[0].Label)
	if !ok {
		return types.Structuralf("设计快照缺少连接 %s", h.out[0].Label)
	}
	if inRec.M == 0 {
		return types.Structuralf("组件 %s 设计质量流量为零，无法导出 zeta", h.label)
	}
	h.ZetaSet = true
	h.ZetaSpec = (inRec.P - outRec.P) / (inRec.M * inRec.M)
	h.PrSet = false
	h.DpSet = false
	return nil
}

// Equations 方程集合
func (h *SimpleHeatExchanger) Equations(sc *network.Scope) []network.Equation {
	in, out := h.in[0], h.out[0]
	eqs := []network.Equation{massBalance(h.label, h.in, h.out)}
	eqs = append(eqs, fluidEquality(h.label, in, out, len(sc.Fluids))...)
	if h.QSet {
		eqs = append(eqs, network.Equation{
			Label: h.label + ":Q",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.M*(out.H-in.H) - h.QSpec, nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				_, ds := h.EnergyFlow()
				return sc.FilterMoved(ds), nil
			},
		})
	}
	if h.PrSet {
		eqs = append(eqs, network.Equation{
			Label: h.label + ":pr",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P*h.PrSpec - out.P, nil
			},
			Jacobian: func(*network.Scope) ([]network.Deriv, error) {
				return []network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: h.PrSpec},
					{Conn: out, Kind: types.VarPressure, Val: -1},
				}, nil
			},
		})
	}
	if h.DpSet {
		eqs = append(eqs, network.Equation{
			Label: h.label + ":dp",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P - h.DpSpec - out.P, nil
			},
			Jacobian: func(*network.Scope) ([]network.Deriv, error) {
				return []network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: 1},
					{Conn: out, Kind: types.VarPressure, Val: -1},
				}, nil
			},
		})
	}
	if h.ZetaSet {
		eqs = append(eqs, network.Equation{
			Label: h.label + ":zeta",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P - out.P - h.ZetaSpec*in.M*math.Abs(in.M), nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				return sc.FilterMoved([]network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: 1},
					{Conn: out, Kind: types.VarPressure, Val: -1},
					{Conn: in, Kind: types.VarMass, Val: -2 * h.ZetaSpec * math.Abs(in.M)},
				}), nil
			},
		})
	}
	return eqs
}

// InitGuess 初值建议
func (h *SimpleHeatExchanger) InitGuess(c *network.Connection, k types.VarKind) (float64, bool) {
	if k == types.VarEnthalpy && c == h.out[0] {
		if h.QSet && h.QSpec < 0 {
			return 2e5, true
		}
		return 5e5, true
	}
	return 0, false
}
