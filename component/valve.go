package component

import (
	"math"

	"flownet/network"
	"flownet/snapshot"
	"flownet/types"
)

// Valve 节流阀（等焓）
// 设计工况常给定压比，运行工况由设计点导出阻力系数 zeta，
// 压降随流量变化：p_in − p_out − zeta·m·|m| = 0。
type Valve struct {
	Base
	PrSet    bool
	PrSpec   float64
	ZetaSet  bool
	ZetaSpec float64 // 阻力系数 (Pa·s²/kg²)
}

// NewValve 构造节流阀
func NewValve(label string) *Valve {
	return &Valve{Base: newBase(label, "valve", 1, 1)}
}

// SetPr 设置压比定值
func (v *Valve) SetPr(x float64) { v.PrSet, v.PrSpec = true, x }

// SetZeta 设置阻力系数定值
func (v *Valve) SetZeta(x float64) { v.ZetaSet, v.ZetaSpec = true, x }

// Preprocess 运行工况预处理
// 从设计快照导出 zeta = (p_in − p_out)/m²，并以 zeta 方程替换压比方程。
func (v *Valve) Preprocess(mode network.Mode, ds *snapshot.Data) error {
	if mode != network.Offdesign || !v.PrSet {
		return nil
	}
	inRec, ok := ds.Conn(v.in[0].Label)
	if !ok {
		return types.Structuralf("设计快照缺少连接 %s", v.in[0].Label)
	}
	outRec, ok := ds.Conn(v.out[0].Label)
	if !ok {
		return types.Structuralf("设计快照缺少连接 %s", v.out[0].Label)
	}
	if inRec.M == 0 {
		return types.Structuralf("组件 %s 设计质量流量为零，无法导出 zeta", v.label)
	}
	v.ZetaSet = true
	v.ZetaSpec = (inRec.P - outRec.P) / (inRec.M * inRec.M)
	v.PrSet = false
	return nil
}

// Equations 方程集合
// 必选：质量守恒、组分守恒、等焓；参数：压比或 zeta。
func (v *Valve) Equations(sc *network.Scope) []network.Equation {
	in, out := v.in[0], v.out[0]
	eqs := []network.Equation{massBalance(v.label, v.in, v.out)}
	eqs = append(eqs, fluidEquality(v.label, in, out, len(sc.Fluids))...)
	eqs = append(eqs, varEquality(v.label, out, in, types.VarEnthalpy))
	if v.PrSet {
		eqs = append(eqs, network.Equation{
			Label: v.label + ":pr",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P*v.PrSpec - out.P, nil
			},
			Jacobian: func(*network.Scope) ([]network.Deriv, error) {
				return []network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: v.PrSpec},
					{Conn: out, Kind: types.VarPressure, Val: -1},
				}, nil
			},
		})
	}
	if v.ZetaSet {
		eqs = append(eqs, network.Equation{
			Label: v.label + ":zeta",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return in.P - out.P - v.ZetaSpec*in.M*math.Abs(in.M), nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				return sc.FilterMoved([]network.Deriv{
					{Conn: in, Kind: types.VarPressure, Val: 1},
					{Conn: out, Kind: types.VarPressure, Val: -1},
					{Conn: in, Kind: types.VarMass, Val: -2 * v.ZetaSpec * math.Abs(in.M)},
				}), nil
			},
		})
	}
	return eqs
}

// ConvergenceCheck 物理合理性修正：节流不升压
func (v *Valve) ConvergenceCheck(*network.Scope) {
	in, out := v.in[0], v.out[0]
	if out.P > in.P {
		out.P = in.P
	}
}

// InitGuess 初值建议
func (v *Valve) InitGuess(c *network.Connection, k types.VarKind) (float64, bool) {
	if k == types.VarPressure {
		if c == v.in[0] {
			return 5e5, true
		}
		return 4e5, true
	}
	if k == types.VarEnthalpy {
		return 5e5, true
	}
	return 0, false
}
