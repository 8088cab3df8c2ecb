package component

import (
	"flownet/network"
	"flownet/types"
)

// Source 源
// 网络边界：只有一个出口，不贡献方程。
type Source struct{ Base }

// NewSource 构造源
func NewSource(label string) *Source {
	return &Source{newBase(label, "source", 0, 1)}
}

// Equations 无方程
func (s *Source) Equations(*network.Scope) []network.Equation { return nil }

// Propagate 边界组件不传播
func (s *Source) Propagate(*network.Connection, *network.Scope) []*network.Connection {
	return nil
}

// Sink 汇
type Sink struct{ Base }

// NewSink 构造汇
func NewSink(label string) *Sink {
	return &Sink{newBase(label, "sink", 1, 0)}
}

// Equations 无方程
func (s *Sink) Equations(*network.Scope) []network.Equation { return nil }

// Propagate 边界组件不传播
func (s *Sink) Propagate(*network.Connection, *network.Scope) []*network.Connection {
	return nil
}

// Merge 汇流
// 多个入口汇成一个出口。必选方程：质量守恒、按质量流量加权的
// 组分混合、能量守恒、各入口与出口压力相等。
type Merge struct{ Base }

// NewMerge 构造汇流，nin 为入口数量
func NewMerge(label string, nin int) *Merge {
	return &Merge{newBase(label, "merge", nin, 1)}
}

// Equations 方程集合
func (m *Merge) Equations(sc *network.Scope) []network.Equation {
	out := m.out[0]
	nf := len(sc.Fluids)
	eqs := []network.Equation{massBalance(m.label, m.in, m.out)}
	// 组分混合 Σ m_in·x_in,i − m_out·x_out,i = 0
	for i := 0; i < nf; i++ {
		idx := i
		eqs = append(eqs, network.Equation{
			Label: m.label + ":fluid",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				res := -out.M * out.X[idx]
				for _, c := range m.in {
					res += c.M * c.X[idx]
				}
				return res, nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				ds := []network.Deriv{
					{Conn: out, Kind: types.VarMass, Val: -out.X[idx]},
					{Conn: out, Kind: types.VarFluid, Index: idx, Val: -out.M},
				}
				for _, c := range m.in {
					ds = append(ds,
						network.Deriv{Conn: c, Kind: types.VarMass, Val: c.X[idx]},
						network.Deriv{Conn: c, Kind: types.VarFluid, Index: idx, Val: c.M})
				}
				return sc.FilterMoved(ds), nil
			},
		})
	}
	// 能量守恒 Σ m_in·h_in − m_out·h_out = 0
	eqs = append(eqs, network.Equation{
		Label: m.label + ":energy",
		Kind:  network.EqComponent,
		Residual: func(*network.Scope) (float64, error) {
			res := -out.M * out.H
			for _, c := range m.in {
				res += c.M * c.H
			}
			return res, nil
		},
		Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
			ds := []network.Deriv{
				{Conn: out, Kind: types.VarMass, Val: -out.H},
				{Conn: out, Kind: types.VarEnthalpy, Val: -out.M},
			}
			for _, c := range m.in {
				ds = append(ds,
					network.Deriv{Conn: c, Kind: types.VarMass, Val: c.H},
					network.Deriv{Conn: c, Kind: types.VarEnthalpy, Val: c.M})
			}
			return sc.FilterMoved(ds), nil
		},
	})
	// 压力相等
	for _, c := range m.in {
		eqs = append(eqs, varEquality(m.label, c, out, types.VarPressure))
	}
	return eqs
}

// Propagate 组成传播
// 只有当所有入口都已解析且组成一致时，出口才随之解析；
// 否则交给组分混合方程求解。
func (m *Merge) Propagate(from *network.Connection, sc *network.Scope) []*network.Connection {
	out := m.out[0]
	if out.Comp.IsResolved() {
		return nil
	}
	first := m.in[0].Comp
	if !first.IsResolved() {
		return nil
	}
	for _, c := range m.in[1:] {
		if !c.Comp.IsResolved() || !c.Comp.Equal(first) {
			return nil
		}
	}
	out.Comp = first
	return []*network.Connection{out}
}

// Splitter 分流
// 一个入口分成多个出口，组成、压力、焓在所有端口一致。
type Splitter struct{ Base }

// NewSplitter 构造分流，nout 为出口数量
func NewSplitter(label string, nout int) *Splitter {
	return &Splitter{newBase(label, "splitter", 1, nout)}
}

// Equations 方程集合
func (s *Splitter) Equations(sc *network.Scope) []network.Equation {
	in := s.in[0]
	nf := len(sc.Fluids)
	eqs := []network.Equation{massBalance(s.label, s.in, s.out)}
	for _, c := range s.out {
		eqs = append(eqs, fluidEquality(s.label, in, c, nf)...)
		eqs = append(eqs, varEquality(s.label, c, in, types.VarPressure))
		eqs = append(eqs, varEquality(s.label, c, in, types.VarEnthalpy))
	}
	return eqs
}

// Propagate 组成传播：任一端口解析后其余端口全部随之解析
func (s *Splitter) Propagate(from *network.Connection, sc *network.Scope) []*network.Connection {
	var next []*network.Connection
	all := append([]*network.Connection{s.in[0]}, s.out...)
	for _, c := range all {
		if c != from && !c.Comp.IsResolved() {
			c.Comp = from.Comp
			next = append(next, c)
		}
	}
	return next
}

// Separator 组分分离器
// 一个入口按组分拆成多个出口，出口组成由方程组求解。必选方程：
// 质量守恒、每个组分一条物料平衡、各出口与入口温度相等、压力相等。
type Separator struct{ Base }

// NewSeparator 构造分离器，nout 为出口数量
func NewSeparator(label string, nout int) *Separator {
	return &Separator{newBase(label, "separator", 1, nout)}
}

// Equations 方程集合
func (s *Separator) Equations(sc *network.Scope) []network.Equation {
	in := s.in[0]
	nf := len(sc.Fluids)
	eqs := []network.Equation{massBalance(s.label, s.in, s.out)}
	// 组分物料平衡 m_in·x_in,i − Σ m_out·x_out,i = 0
	for i := 0; i < nf; i++ {
		idx := i
		eqs = append(eqs, network.Equation{
			Label: s.label + ":fluid",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				res := in.M * in.X[idx]
				for _, c := range s.out {
					res -= c.M * c.X[idx]
				}
				return res, nil
			},
			Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
				ds := []network.Deriv{
					{Conn: in, Kind: types.VarMass, Val: in.X[idx]},
					{Conn: in, Kind: types.VarFluid, Index: idx, Val: in.M},
				}
				for _, c := range s.out {
					ds = append(ds,
						network.Deriv{Conn: c, Kind: types.VarMass, Val: -c.X[idx]},
						network.Deriv{Conn: c, Kind: types.VarFluid, Index: idx, Val: -c.M})
				}
				return sc.FilterMoved(ds), nil
			},
		})
	}
	// 分离不改变温度与压力
	for _, c := range s.out {
		eqs = append(eqs, temperatureEquality(s.label, in, c))
	}
	for _, c := range s.out {
		eqs = append(eqs, varEquality(s.label, c, in, types.VarPressure))
	}
	return eqs
}

// Propagate 分离改变组成，不传播
func (s *Separator) Propagate(*network.Connection, *network.Scope) []*network.Connection {
	return nil
}
