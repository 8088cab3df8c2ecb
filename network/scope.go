package network

import (
	"github.com/charmbracelet/log"

	"flownet/fluid"
	"flownet/types"
)

// Scope 方程计算上下文
// 显式传递给所有残差/偏导闭包，取代任何全局状态：物性后端、
// 组分表、日志器、迭代序号与增量过滤都挂在这里。
type Scope struct {
	Backend   fluid.Backend
	Fluids    []string
	Log       *log.Logger
	Iteration int

	// Moved 变量增量过滤：返回 true 表示该变量上一步增量显著，
	// 依赖它的昂贵偏导需要重新计算；nil 表示全部重算。
	Moved func(c *Connection, k types.VarKind, idx int) bool
}

// FluidIndex 组分名称到序号，未知组分返回 -1
func (sc *Scope) FluidIndex(name string) int {
	for i, n := range sc.Fluids {
		if n == name {
			return i
		}
	}
	return -1
}

// VarMoved 增量过滤查询
func (sc *Scope) VarMoved(c *Connection, k types.VarKind, idx int) bool {
	if sc.Moved == nil {
		return true
	}
	return sc.Moved(c, k, idx)
}

// FilterMoved 按增量过滤裁剪偏导列表
// 上一步增量不显著的变量对应的列被省略，装配器沿用该列的缓存值。
// 只用于随状态变化的偏导；常数系数的方程不需要裁剪。
func (sc *Scope) FilterMoved(ds []Deriv) []Deriv {
	if sc.Moved == nil {
		return ds
	}
	out := ds[:0]
	for _, d := range ds {
		if sc.Moved(d.Conn, d.Kind, d.Index) {
			out = append(out, d)
		}
	}
	return out
}

// T 按连接工况点查温度，错误时带上连接标签
func (sc *Scope) T(c *Connection) (float64, error) {
	t, err := sc.Backend.T(c.X, c.P, c.H)
	if err != nil {
		return 0, sc.withConn(c, err)
	}
	return t, nil
}

// withConn 为物性错误补上连接标签
func (sc *Scope) withConn(c *Connection, err error) error {
	if le, ok := err.(*fluid.LookupError); ok && le.Conn == "" {
		return &fluid.LookupError{Conn: c.Label, Prop: le.Prop, Reason: le.Reason}
	}
	return err
}

// DTdpConn DTdhConn DTdxConn 按连接工况点求温度数值偏导，
// 错误时带上连接标签方便定位。
func DTdpConn(sc *Scope, c *Connection) (float64, error) {
	v, err := fluid.DTdp(sc.Backend, c.X, c.P, c.H)
	if err != nil {
		return 0, sc.withConn(c, err)
	}
	return v, nil
}

func DTdhConn(sc *Scope, c *Connection) (float64, error) {
	v, err := fluid.DTdh(sc.Backend, c.X, c.P, c.H)
	if err != nil {
		return 0, sc.withConn(c, err)
	}
	return v, nil
}

func DTdxConn(sc *Scope, c *Connection, i int) (float64, error) {
	v, err := fluid.DTdx(sc.Backend, c.X, c.P, c.H, i)
	if err != nil {
		return 0, sc.withConn(c, err)
	}
	return v, nil
}
