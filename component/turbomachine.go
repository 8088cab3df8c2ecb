package component

import (
	"flownet/network"
	"flownet/types"
)

// turbo 透平机械公共部分（单进单出，带轴功率）
type turbo struct {
	Base
	PSet   bool
	PSpec  float64 // 轴功率 (W)，正值表示对流体做功
	PrSet  bool
	PrSpec float64 // 压比 p_out/p_in (-)
}

// SetP 设置轴功率定值
func (t *turbo) SetP(v float64) { t.PSet, t.PSpec = true, v }

// SetPr 设置压比定值
func (t *turbo) SetPr(v float64) { t.PrSet, t.PrSpec = true, v }

// EnergyFlow 能量流 P = m·(h_out − h_in) 及其偏导
func (t *turbo) EnergyFlow() (float64, []network.Deriv) {
	in, out := t.in[0], t.out[0]
	p := in.M * (out.H - in.H)
	return p, []network.Deriv{
		{Conn: in, Kind: types.VarMass, Val: out.H - in.H},
		{Conn: in, Kind: types.VarEnthalpy, Val: -in.M},
		{Conn: out, Kind: types.VarEnthalpy, Val: in.M},
	}
}

// equations 必选方程 + 参数方程
func (t *turbo) equations(sc *network.Scope) []network.Equation {
	in, out := t.in[0], t.out[0]
	eqs := []network.Equation{massBalance(t.label, t.in, t.out)}
	eqs = append(eqs, fluidEquality(t.label, in, out, len(sc.Fluids))...)
	if t.PSet {
		eqs = append(eqs, network.Equation{
			Label: t.label + ":P",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.M*(out.H-in.H) - t.PSpec, nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				_, ds := t.EnergyFlow()
				return sc.FilterMoved(ds), nil
			},
		})
	}
	if t.PrSet {
		eqs = append(eqs, network.Equation{
			Label: t.label + ":pr",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P*t.PrSpec - out.P, nil
			},
			Jacobian: func(*network.Scope) ([]network.Deriv, error) {
				return []network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: t.PrSpec},
					{Conn: out, Kind: types.VarPressure, Val: -1},
				}, nil
			},
		})
	}
	return eqs
}

// Pump 泵
type Pump struct{ turbo }

// NewPump 构造泵
func NewPump(label string) *Pump {
	return &Pump{turbo{Base: newBase(label, "pump", 1, 1)}}
}

// Equations 方程集合
func (p *Pump) Equations(sc *network.Scope) []network.Equation {
	return p.equations(sc)
}

// ConvergenceCheck 物理合理性修正：泵升压、升焓
func (p *Pump) ConvergenceCheck(*network.Scope) {
	in, out := p.in[0], p.out[0]
	if out.P < in.P {
		out.P = in.P
	}
	if out.H < in.H {
		out.H = in.H
	}
	if in.M < 0 {
		in.M = 0.01
	}
}

// InitGuess 初值建议
func (p *Pump) InitGuess(c *network.Connection, k types.VarKind) (float64, bool) {
	switch {
	case c == p.out[0] && k == types.VarPressure:
		return 10e5, true
	case c == p.out[0] && k == types.VarEnthalpy:
		return 3e5, true
	case c == p.in[0] && k == types.VarPressure:
		return 1e5, true
	case c == p.in[0] && k == types.VarEnthalpy:
		return 2.9e5, true
	}
	return 0, false
}

// Turbine 透平
type Turbine struct{ turbo }

// NewTurbine 构造透平
func NewTurbine(label string) *Turbine {
	return &Turbine{turbo{Base: newBase(label, "turbine", 1, 1)}}
}

// Equations 方程集合
func (t *Turbine) Equations(sc *network.Scope) []network.Equation {
	return t.equations(sc)
}

// ConvergenceCheck 物理合理性修正：透平降压、降焓
func (t *Turbine) ConvergenceCheck(*network.Scope) {
	in, out := t.in[0], t.out[0]
	if out.P > in.P {
		out.P = in.P
	}
	if out.H > in.H {
		out.H = in.H
	}
	if in.M < 0 {
		in.M = 0.01
	}
}

// InitGuess 初值建议
func (t *Turbine) InitGuess(c *network.Connection, k types.VarKind) (float64, bool) {
	switch {
	case c == t.out[0] && k == types.VarPressure:
		return 0.5e5, true
	case c == t.out[0] && k == types.VarEnthalpy:
		return 1.5e6, true
	case c == t.in[0] && k == types.VarPressure:
		return 25e5, true
	case c == t.in[0] && k == types.VarEnthalpy:
		return 2e6, true
	}
	return 0, false
}
