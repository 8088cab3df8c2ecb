package network

import (
	"flownet/types"
)

// Connection 连接
// 组件端口之间的有向边，持有状态向量中属于自己的一段变量
// [m, p, h, x...]，以及用户给定的定值与范围。拓扑冻结后由求解器
// 分配 Loc 起始索引，任何拓扑变更使索引全部失效。
type Connection struct {
	Label   string
	Src     Component // 来源组件
	SrcPort int       // 来源出口序号
	Dst     Component // 目标组件
	DstPort int       // 目标入口序号

	// 当前迭代值，由状态向量管理器在每次增量后回写
	M float64   // 质量流量 (kg/s)
	P float64   // 压力 (Pa)
	H float64   // 比焓 (J/kg)
	X []float64 // 组分质量分数

	// 用户定值
	MSet, PSet, HSet, TSet     bool
	MSpec, PSpec, HSpec, TSpec float64
	FluidSet                   []bool    // 按组分序号的定值开关
	FluidSpec                  []float64 // 定值
	FluidBalance               bool      // Σx=1 约束开关

	// 用户给定的取值范围，稳定化阶段使用；零值表示未提供
	MRange types.Range
	PRange types.Range
	HRange types.Range

	// 求解期数据
	Loc  int               // 状态向量起始索引
	Comp types.Composition // 组成传播结果
}

// SetM SetP SetH SetT 定值设置
func (c *Connection) SetM(v float64) { c.MSet, c.MSpec = true, v }
func (c *Connection) SetP(v float64) { c.PSet, c.PSpec = true, v }
func (c *Connection) SetH(v float64) { c.HSet, c.HSpec = true, v }
func (c *Connection) SetT(v float64) { c.TSet, c.TSpec = true, v }

// SetFluidIndex 设置第 i 个组分的质量分数定值
func (c *Connection) SetFluidIndex(i int, v float64) {
	c.FluidSet[i] = true
	c.FluidSpec[i] = v
}

// FullySpecifiedFluid 所有组分是否都有定值
func (c *Connection) FullySpecifiedFluid() bool {
	for _, s := range c.FluidSet {
		if !s {
			return false
		}
	}
	return len(c.FluidSet) > 0
}

// SpecCount 该连接贡献的方程数量
// 每个定值物性一条，温度一条，组分定值各一条，组分平衡一条。
func (c *Connection) SpecCount() int {
	n := 0
	for _, s := range []bool{c.MSet, c.PSet, c.HSet, c.TSet, c.FluidBalance} {
		if s {
			n++
		}
	}
	for _, s := range c.FluidSet {
		if s {
			n++
		}
	}
	return n
}

// Equations 连接定值方程
func (c *Connection) Equations(sc *Scope) []Equation {
	var eqs []Equation
	one := func(k types.VarKind, spec float64, get func() float64) Equation {
		return Equation{
			Label: c.Label + ":" + k.String(),
			Kind:  EqConnection,
			Residual: func(*Scope) (float64, error) {
				return get() - spec, nil
			},
			Jacobian: func(*Scope) ([]Deriv, error) {
				return []Deriv{{Conn: c, Kind: k, Val: 1}}, nil
			},
		}
	}
	if c.MSet {
		eqs = append(eqs, one(types.VarMass, c.MSpec, func() float64 { return c.M }))
	}
	if c.PSet {
		eqs = append(eqs, one(types.VarPressure, c.PSpec, func() float64 { return c.P }))
	}
	if c.HSet {
		eqs = append(eqs, one(types.VarEnthalpy, c.HSpec, func() float64 { return c.H }))
	}
	if c.TSet {
		eqs = append(eqs, c.temperatureEquation())
	}
	for i, set := range c.FluidSet {
		if !set {
			continue
		}
		idx, spec := i, c.FluidSpec[i]
		eqs = append(eqs, Equation{
			Label: c.Label + ":x",
			Kind:  EqConnection,
			Residual: func(*Scope) (float64, error) {
				return c.X[idx] - spec, nil
			},
			Jacobian: func(*Scope) ([]Deriv, error) {
				return []Deriv{{Conn: c, Kind: types.VarFluid, Index: idx, Val: 1}}, nil
			},
		})
	}
	if c.FluidBalance {
		eqs = append(eqs, Equation{
			Label: c.Label + ":balance",
			Kind:  EqConnection,
			Residual: func(*Scope) (float64, error) {
				sum := 0.0
				for _, v := range c.X {
					sum += v
				}
				return sum - 1, nil
			},
			Jacobian: func(*Scope) ([]Deriv, error) {
				ds := make([]Deriv, len(c.X))
				for i := range c.X {
					ds[i] = Deriv{Conn: c, Kind: types.VarFluid, Index: i, Val: 1}
				}
				return ds, nil
			},
		})
	}
	return eqs
}

// temperatureEquation 温度定值方程
// 残差 T(x,p,h) − T_spec。温度方程对混合物计算高度敏感，残差永远
// 重新计算，不参与按方程的跳过策略；数值微分的偏导逐变量受增量
// 过滤门控，未移动的变量沿用缓存列。
func (c *Connection) temperatureEquation() Equation {
	return Equation{
		Label:       c.Label + ":T",
		Kind:        EqConnection,
		Temperature: true,
		Residual: func(sc *Scope) (float64, error) {
			t, err := sc.T(c)
			if err != nil {
				return 0, err
			}
			return t - c.TSpec, nil
		},
		Jacobian: func(sc *Scope) ([]Deriv, error) {
			var ds []Deriv
			if sc.VarMoved(c, types.VarPressure, 0) {
				dp, err := DTdpConn(sc, c)
				if err != nil {
					return nil, err
				}
				ds = append(ds, Deriv{Conn: c, Kind: types.VarPressure, Val: dp})
			}
			if sc.VarMoved(c, types.VarEnthalpy, 0) {
				dh, err := DTdhConn(sc, c)
				if err != nil {
					return nil, err
				}
				ds = append(ds, Deriv{Conn: c, Kind: types.VarEnthalpy, Val: dh})
			}
			for i := range c.X {
				if !sc.VarMoved(c, types.VarFluid, i) {
					continue
				}
				dx, err := DTdxConn(sc, c, i)
				if err != nil {
					return nil, err
				}
				ds = append(ds, Deriv{Conn: c, Kind: types.VarFluid, Index: i, Val: dx})
			}
			return ds, nil
		},
	}
}
