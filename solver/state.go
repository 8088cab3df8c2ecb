package solver

import (
	"fmt"

	"flownet/network"
	"flownet/types"
)

// Vars 状态向量管理器
// 持有有序的系统变量数组并维护连接/变量身份到扁平索引的映射。
// 索引在一次求解调用期间稳定；任何拓扑变更使全部索引失效并
// 强制重新初始化。
type Vars struct {
	conns []*network.Connection
	nf    int
	per   int // 每条连接的变量数 3 + nf
	data  []float64
}

// newVars 冻结拓扑并分配索引
func newVars(conns []*network.Connection, nf int) *Vars {
	v := &Vars{
		conns: conns,
		nf:    nf,
		per:   types.VarsPerConn(nf),
	}
	for i, c := range conns {
		c.Loc = i * v.per
	}
	v.data = make([]float64, len(conns)*v.per)
	return v
}

// N 系统变量总数
func (v *Vars) N() int { return len(v.data) }

// Index 连接/变量身份到扁平索引
// 越界是编程错误而非用户可恢复错误，直接 panic。
func (v *Vars) Index(c *network.Connection, k types.VarKind, idx int) int {
	switch k {
	case types.VarMass:
		return c.Loc
	case types.VarPressure:
		return c.Loc + 1
	case types.VarEnthalpy:
		return c.Loc + 2
	case types.VarFluid:
		if idx < 0 || idx >= v.nf {
			panic(fmt.Sprintf("组分序号越界: %d", idx))
		}
		return c.Loc + 3 + idx
	}
	panic(fmt.Sprintf("未知变量类型: %d", k))
}

// Get 读变量
func (v *Vars) Get(c *network.Connection, k types.VarKind, idx int) float64 {
	return v.data[v.Index(c, k, idx)]
}

// Set 写变量
func (v *Vars) Set(c *network.Connection, k types.VarKind, idx int, val float64) {
	v.data[v.Index(c, k, idx)] = val
}

// Data 底层向量
func (v *Vars) Data() []float64 { return v.data }

// Load 连接值写入向量
func (v *Vars) Load() {
	for _, c := range v.conns {
		v.data[c.Loc] = c.M
		v.data[c.Loc+1] = c.P
		v.data[c.Loc+2] = c.H
		copy(v.data[c.Loc+3:c.Loc+3+v.nf], c.X)
	}
}

// Store 向量回写连接值
func (v *Vars) Store() {
	for _, c := range v.conns {
		c.M = v.data[c.Loc]
		c.P = v.data[c.Loc+1]
		c.H = v.data[c.Loc+2]
		copy(c.X, v.data[c.Loc+3:c.Loc+3+v.nf])
	}
}
