// Package component 实现封闭的组件变体集合。
// 每个变体通过注册表按类别构造，实现 network.Component 能力接口：
// 拓扑必选方程（质量、组分守恒）加上每个用户定参数一条方程。
package component

import (
	"flownet/network"
	"flownet/snapshot"
	"flownet/types"
)

// Base 组件公共数据
type Base struct {
	label    string
	category string
	in       []*network.Connection
	out      []*network.Connection
}

func newBase(label, category string, nin, nout int) Base {
	return Base{
		label:    label,
		category: category,
		in:       make([]*network.Connection, nin),
		out:      make([]*network.Connection, nout),
	}
}

// Label 组件标签
func (b *Base) Label() string { return b.label }

// Category 组件类别
func (b *Base) Category() string { return b.category }

// InletCount 入口数量
func (b *Base) InletCount() int { return len(b.in) }

// OutletCount 出口数量
func (b *Base) OutletCount() int { return len(b.out) }

// AttachInlet 接入入口连接
func (b *Base) AttachInlet(i int, c *network.Connection) error {
	if i < 0 || i >= len(b.in) {
		return types.Structuralf("组件 %s 没有入口 %d", b.label, i)
	}
	if b.in[i] != nil {
		return types.Structuralf("组件 %s 入口 %d 已被占用", b.label, i)
	}
	b.in[i] = c
	return nil
}

// AttachOutlet 接入出口连接
func (b *Base) AttachOutlet(i int, c *network.Connection) error {
	if i < 0 || i >= len(b.out) {
		return types.Structuralf("组件 %s 没有出口 %d", b.label, i)
	}
	if b.out[i] != nil {
		return types.Structuralf("组件 %s 出口 %d 已被占用", b.label, i)
	}
	b.out[i] = c
	return nil
}

// Inlet 入口连接
func (b *Base) Inlet(i int) *network.Connection { return b.in[i] }

// Outlet 出口连接
func (b *Base) Outlet(i int) *network.Connection { return b.out[i] }

// Connected 端口完整性检查
func (b *Base) Connected() error {
	for i, c := range b.in {
		if c == nil {
			return types.Structuralf("组件 %s 入口 %d 悬空", b.label, i)
		}
	}
	for i, c := range b.out {
		if c == nil {
			return types.Structuralf("组件 %s 出口 %d 悬空", b.label, i)
		}
	}
	return nil
}

// ConvergenceCheck 默认无修正
func (b *Base) ConvergenceCheck(*network.Scope) {}

// InitGuess 默认无初值建议
func (b *Base) InitGuess(*network.Connection, types.VarKind) (float64, bool) {
	return 0, false
}

// Preprocess 默认无预处理
func (b *Base) Preprocess(network.Mode, *snapshot.Data) error { return nil }

// Propagate 默认组成传播：单进单出时双向透传
func (b *Base) Propagate(from *network.Connection, sc *network.Scope) []*network.Connection {
	if len(b.in) != 1 || len(b.out) != 1 {
		return nil
	}
	return passThrough(from, b.in[0], b.out[0])
}

// passThrough 在一对连接之间透传组成
func passThrough(from, in, out *network.Connection) []*network.Connection {
	var next []*network.Connection
	if from == in && !out.Comp.IsResolved() {
		out.Comp = from.Comp
		next = append(next, out)
	}
	if from == out && !in.Comp.IsResolved() {
		in.Comp = from.Comp
		next = append(next, in)
	}
	return next
}

// massBalance 质量守恒方程 Σm_in − Σm_out = 0
func massBalance(label string, in, out []*network.Connection) network.Equation {
	return network.Equation{
		Label: label + ":mass",
		Kind:  network.EqComponent,
		Residual: func(*network.Scope) (float64, error) {
			res := 0.0
			for _, c := range in {
				res += c.M
			}
			for _, c := range out {
				res -= c.M
			}
			return res, nil
		},
		Jacobian: func(*network.Scope) ([]network.Deriv, error) {
			var ds []network.Deriv
			for _, c := range in {
				ds = append(ds, network.Deriv{Conn: c, Kind: types.VarMass, Val: 1})
			}
			for _, c := range out {
				ds = append(ds, network.Deriv{Conn: c, Kind: types.VarMass, Val: -1})
			}
			return ds, nil
		},
	}
}

// fluidEquality 组分守恒方程（单流路）：x_out,i − x_in,i = 0，每个组分一条
func fluidEquality(label string, in, out *network.Connection, nf int) []network.Equation {
	eqs := make([]network.Equation, nf)
	for i := 0; i < nf; i++ {
		idx := i
		eqs[i] = network.Equation{
			Label: label + ":fluid",
			Kind:  network.EqComponent,
			Residual: func(*network.Scope) (float64, error) {
				return out.X[idx] - in.X[idx], nil
			},
			Jacobian: func(*network.Scope) ([]network.Deriv, error) {
				return []network.Deriv{
					{Conn: out, Kind: types.VarFluid, Index: idx, Val: 1},
					{Conn: in, Kind: types.VarFluid, Index: idx, Val: -1},
				}, nil
			},
		}
	}
	return eqs
}

// temperatureEquality 温度相等方程 T(b) − T(a) = 0
// 经物性后端计算，偏导数值微分；温度类方程残差永远重算，
// 数值偏导逐变量受增量过滤门控。
func temperatureEquality(label string, a, b *network.Connection) network.Equation {
	return network.Equation{
		Label:       label + ":T_eq",
		Kind:        network.EqComponent,
		Temperature: true,
		Residual: func(sc *network.Scope) (float64, error) {
			ta, err := sc.T(a)
			if err != nil {
				return 0, err
			}
			tb, err := sc.T(b)
			if err != nil {
				return 0, err
			}
			return tb - ta, nil
		},
		Jacobian: func(sc *network.Scope) ([]network.Deriv, error) {
			var ds []network.Deriv
			add := func(c *network.Connection, sign float64) error {
				if sc.VarMoved(c, types.VarPressure, 0) {
					dp, err := network.DTdpConn(sc, c)
					if err != nil {
						return err
					}
					ds = append(ds, network.Deriv{Conn: c, Kind: types.VarPressure, Val: sign * dp})
				}
				if sc.VarMoved(c, types.VarEnthalpy, 0) {
					dh, err := network.DTdhConn(sc, c)
					if err != nil {
						return err
					}
					ds = append(ds, network.Deriv{Conn: c, Kind: types.VarEnthalpy, Val: sign * dh})
				}
				for i := range c.X {
					if !sc.VarMoved(c, types.VarFluid, i) {
						continue
					}
					dx, err := network.DTdxConn(sc, c, i)
					if err != nil {
						return err
					}
					ds = append(ds, network.Deriv{Conn: c, Kind: types.VarFluid, Index: i, Val: sign * dx})
				}
				return nil
			}
			if err := add(b, 1); err != nil {
				return nil, err
			}
			if err := add(a, -1); err != nil {
				return nil, err
			}
			return ds, nil
		},
	}
}

// varEquality 标量变量相等方程 a.k − b.k = 0
func varEquality(label string, a, b *network.Connection, k types.VarKind) network.Equation {
	get := func(c *network.Connection) float64 {
		switch k {
		case types.VarMass:
			return c.M
		case types.VarPressure:
			return c.P
		default:
			return c.H
		}
	}
	return network.Equation{
		Label: label + ":" + k.String() + "_eq",
		Kind:  network.EqComponent,
		Residual: func(*network.Scope) (float64, error) {
			return get(a) - get(b), nil
		},
		Jacobian: func(*network.Scope) ([]network.Deriv, error) {
			return []network.Deriv{
				{Conn: a, Kind: k, Val: 1},
				{Conn: b, Kind: k, Val: -1},
			}, nil
		},
	}
}
