package component

import (
	"flownet/network"
	"flownet/types"
)

// 甲烷完全燃烧 CH4 + 2 O2 -> CO2 + 2 H2O 的质量配比（kg / kg CH4）
const (
	mCH4 = 16.043
	mO2  = 31.999
	mCO2 = 44.010
	mH2O = 18.015

	ratioO2  = 2 * mO2 / mCH4
	ratioCO2 = mCO2 / mCH4
	ratioH2O = 2 * mH2O / mCH4

	// 甲烷低位发热量 (J/kg)
	lhvCH4 = 50.0e6
)

// CombustionChamber 燃烧室
// 两个入口（空气、燃料）一个出口。必选方程：每个组分一条反应
// 物料平衡（总质量守恒是其线性组合，不单列）、含 LHV 的能量
// 守恒、入口与出口压力相等。参数方程：过量空气系数 lambda。
type CombustionChamber struct {
	Base
	LambSet  bool
	LambSpec float64 // 实际氧量与化学计量氧量之比 (-)
}

// NewCombustionChamber 构造燃烧室
func NewCombustionChamber(label string) *CombustionChamber {
	return &CombustionChamber{Base: newBase(label, "combustion chamber", 2, 1)}
}

// SetLambda 设置过量空气系数定值
func (cc *CombustionChamber) SetLambda(v float64) { cc.LambSet, cc.LambSpec = true, v }

// indices 反应相关组分序号
func (cc *CombustionChamber) indices(sc *network.Scope) (fuel, o2, co2, h2o int, err error) {
	fuel = sc.FluidIndex("CH4")
	o2 = sc.FluidIndex("O2")
	co2 = sc.FluidIndex("CO2")
	h2o = sc.FluidIndex("H2O")
	if fuel < 0 || o2 < 0 || co2 < 0 || h2o < 0 {
		err = types.Structuralf("组件 %s 需要组分表包含 CH4/O2/CO2/H2O", cc.label)
	}
	return
}

// fuelIn 入口燃料质量流量 Σ m_in·x_in,CH4
func (cc *CombustionChamber) fuelIn(fuel int) float64 {
	mf := 0.0
	for _, c := range cc.in {
		mf += c.M * c.X[fuel]
	}
	return mf
}

// Equations 方程集合
func (cc *CombustionChamber) Equations(sc *network.Scope) []network.Equation {
	out := cc.out[0]
	nf := len(sc.Fluids)
	fuel, o2, co2, h2o, idxErr := cc.indices(sc)
	// 每个组分相对燃料消耗量的化学计量系数
	stoich := make([]float64, nf)
	if idxErr == nil {
		stoich[fuel] = -1
		stoich[o2] = -ratioO2
		stoich[co2] = ratioCO2
		stoich[h2o] = ratioH2O
	}

	var eqs []network.Equation
	// 反应物料平衡 Σ m_in·x_in,i − m_out·x_out,i + s_i·m_fuel = 0
	for i := 0; i < nf; i++ {
		idx := i
		eqs = append(eqs, network.Equation{
			Label: cc.label + ":reaction",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				if idxErr != nil {
					return 0, idxErr
				}
				res := -out.M * out.X[idx]
				for _, c := range cc.in {
					res += c.M * c.X[idx]
				}
				return res + stoich[idx]*cc.fuelIn(fuel), nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				if idxErr != nil {
					return nil, idxErr
				}
				ds := []network.Deriv{
					{Conn: out, Kind: types.VarMass, Val: -out.X[idx]},
					{Conn: out, Kind: types.VarFluid, Index: idx, Val: -out.M},
				}
				for _, c := range cc.in {
					ds = append(ds, network.Deriv{
						Conn: c, Kind: types.VarMass,
						Val: c.X[idx] + stoich[idx]*c.X[fuel],
					})
					ds = append(ds, network.Deriv{
						Conn: c, Kind: types.VarFluid, Index: idx, Val: c.M,
					})
					if idx != fuel {
						ds = append(ds, network.Deriv{
							Conn: c, Kind: types.VarFluid, Index: fuel,
							Val: stoich[idx] * c.M,
						})
					}
				}
				return sc.FilterMoved(ds), nil
			},
		})
	}
	// 能量守恒 Σ m_in·h_in − m_out·h_out + LHV·m_fuel = 0
	eqs = append(eqs, network.Equation{
		Label: cc.label + ":energy",
		Kind:  network.EqComponent,
		Residual: func(*network.Scope) (float64, error) {
			if idxErr != nil {
				return 0, idxErr
			}
			res := -out.M * out.H
			for _, c := range cc.in {
				res += c.M * c.H
			}
			return res + lhvCH4*cc.fuelIn(fuel), nil
		},
		Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
			if idxErr != nil {
				return nil, idxErr
			}
			ds := []network.Deriv{
				{Conn: out, Kind: types.VarMass, Val: -out.H},
				{Conn: out, Kind: types.VarEnthalpy, Val: -out.M},
			}
			for _, c := range cc.in {
				ds = append(ds,
					network.Deriv{Conn: c, Kind: types.VarMass, Val: c.H + lhvCH4*c.X[fuel]},
					network.Deriv{Conn: c, Kind: types.VarEnthalpy, Val: c.M},
					network.Deriv{Conn: c, Kind: types.VarFluid, Index: fuel, Val: lhvCH4 * c.M})
			}
			return sc.FilterMoved(ds), nil
		},
	})
	// 压力相等
	for _, c := range cc.in {
		eqs = append(eqs, varEquality(cc.label, c, out, types.VarPressure))
	}
	// lambda 参数方程 Σ m_in·x_in,O2 − λ·r_O2·m_fuel = 0
	if cc.LambSet {
		eqs = append(eqs, network.Equation{
			Label: cc.label + ":lambda",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				if idxErr != nil {
					return 0, idxErr
				}
				o2In := 0.0
				for _, c := range cc.in {
					o2In += c.M * c.X[o2]
				}
				return o2In - cc.LambSpec*ratioO2*cc.fuelIn(fuel), nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				if idxErr != nil {
					return nil, idxErr
				}
				var ds []network.Deriv
				for _, c := range cc.in {
					ds = append(ds,
						network.Deriv{Conn: c, Kind: types.VarMass, Val: c.X[o2] - cc.LambSpec*ratioO2*c.X[fuel]},
						network.Deriv{Conn: c, Kind: types.VarFluid, Index: o2, Val: c.M},
						network.Deriv{Conn: c, Kind: types.VarFluid, Index: fuel, Val: -cc.LambSpec * ratioO2 * c.M})
				}
				return sc.FilterMoved(ds), nil
			},
		})
	}
	return eqs
}

// 典型烟气包络：出口组成的合理性上限
var flueEnvelope = map[string]types.Range{
	"O2":  {Min: 0, Max: 0.23},
	"CO2": {Min: 0, Max: 0.20},
	"H2O": {Min: 0, Max: 0.15},
	"CH4": {Min: 0, Max: 0.05},
}

// ConvergenceCheck 物理合理性修正：出口组成压回典型烟气包络
func (cc *CombustionChamber) ConvergenceCheck(sc *network.Scope) {
	out := cc.out[0]
	for i, name := range sc.Fluids {
		if r, ok := flueEnvelope[name]; ok {
			out.X[i] = r.Clip(out.X[i])
		}
	}
	if out.M < 0 {
		out.M = 0.01
	}
}

// 通用烟气组成，传播阶段的出口合成值
var genericFlue = map[string]float64{
	"N2":  0.76,
	"O2":  0.05,
	"CO2": 0.09,
	"H2O": 0.10,
}

// Propagate 组成传播
// 任一入口解析后，出口合成通用烟气组成继续向下游传播。
func (cc *CombustionChamber) Propagate(from *network.Connection, sc *network.Scope) []*network.Connection {
	out := cc.out[0]
	if out.Comp.IsResolved() {
		return nil
	}
	frac := make([]float64, len(sc.Fluids))
	for i, name := range sc.Fluids {
		frac[i] = genericFlue[name]
	}
	out.Comp = types.Resolved(frac).Normalize()
	return []*network.Connection{out}
}

// InitGuess 初值建议：烟气出口为高焓气体
func (cc *CombustionChamber) InitGuess(c *network.Connection, k types.VarKind) (float64, bool) {
	if c == cc.out[0] {
		switch k {
		case types.VarEnthalpy:
			return 1.5e6, true
		case types.VarPressure:
			return 1e5, true
		}
	}
	return 0, false
}
