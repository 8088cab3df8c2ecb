// Package network 定义过程网络的拓扑层：组件、连接、母线，
// 以及求解前的拓扑校验与组成传播。
package network

import (
	"os"

	"github.com/charmbracelet/log"

	"flownet/fluid"
	"flownet/types"
)

// Network 过程网络
// 持有组件、连接与母线的注册表。同一网络实例上的并发求解不被
// 允许：连接值在每次迭代中被原地改写。
type Network struct {
	Fluids  []string
	Backend fluid.Backend

	Comps  []Component
	Conns  []*Connection
	Busses []*Bus

	compIndex map[string]Component
	connIndex map[string]*Connection

	// Solved 上次求解已收敛，init_previous 可以复用连接值
	Solved bool

	Log *log.Logger
}

// New 构造网络，组分表取自物性后端
func New(backend fluid.Backend, logger *log.Logger) *Network {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Network{
		Fluids:    backend.Fluids(),
		Backend:   backend,
		compIndex: map[string]Component{},
		connIndex: map[string]*Connection{},
		Log:       logger,
	}
}

// NumFluids 组分数量
func (nw *Network) NumFluids() int { return len(nw.Fluids) }

// NumVars 系统变量总数 n = 连接数 × (3 + 组分数)
func (nw *Network) NumVars() int {
	return len(nw.Conns) * types.VarsPerConn(nw.NumFluids())
}

// FluidIndex 组分名称到序号，未知返回 -1
func (nw *Network) FluidIndex(name string) int {
	for i, n := range nw.Fluids {
		if n == name {
			return i
		}
	}
	return -1
}

// Add 添加组件，标签查重
func (nw *Network) Add(cs ...Component) error {
	for _, c := range cs {
		if _, ok := nw.compIndex[c.Label()]; ok {
			return types.Structuralf("组件标签重复: %s", c.Label())
		}
		nw.compIndex[c.Label()] = c
		nw.Comps = append(nw.Comps, c)
	}
	// 拓扑变更使历史解失效
	nw.Solved = false
	return nil
}

// Comp 按标签取组件
func (nw *Network) Comp(label string) Component { return nw.compIndex[label] }

// Conn 按标签取连接
func (nw *Network) Conn(label string) *Connection { return nw.connIndex[label] }

// Link 在两个组件端口之间建立连接
func (nw *Network) Link(label string, src Component, srcPort int, dst Component, dstPort int) (*Connection, error) {
	if _, ok := nw.connIndex[label]; ok {
		return nil, types.Structuralf("连接标签重复: %s", label)
	}
	nf := nw.NumFluids()
	c := &Connection{
		Label:     label,
		Src:       src,
		SrcPort:   srcPort,
		Dst:       dst,
		DstPort:   dstPort,
		X:         make([]float64, nf),
		FluidSet:  make([]bool, nf),
		FluidSpec: make([]float64, nf),
		Comp:      types.Unresolved(),
	}
	if err := src.AttachOutlet(srcPort, c); err != nil {
		return nil, err
	}
	if err := dst.AttachInlet(dstPort, c); err != nil {
		return nil, err
	}
	nw.connIndex[label] = c
	nw.Conns = append(nw.Conns, c)
	nw.Solved = false
	return c, nil
}

// AddBus 添加母线
func (nw *Network) AddBus(bs ...*Bus) {
	nw.Busses = append(nw.Busses, bs...)
}

// SetFluid 按组分名称设置连接的组成定值
func (nw *Network) SetFluid(c *Connection, frac map[string]float64) error {
	for name, v := range frac {
		i := nw.FluidIndex(name)
		if i < 0 {
			return types.Structuralf("未知组分: %s", name)
		}
		c.SetFluidIndex(i, v)
	}
	return nil
}

// Scope 构造方程计算上下文
func (nw *Network) Scope() *Scope {
	return &Scope{
		Backend: nw.Backend,
		Fluids:  nw.Fluids,
		Log:     nw.Log,
	}
}

// Validate 拓扑校验
// 悬空端口、无源连接、空组分表都是结构错误，求解不会开始。
func (nw *Network) Validate() error {
	if nw.NumFluids() == 0 {
		return types.Structuralf("网络没有组分表")
	}
	if len(nw.Conns) == 0 {
		return types.Structuralf("网络没有连接")
	}
	for _, c := range nw.Comps {
		if err := c.Connected(); err != nil {
			return err
		}
	}
	for _, c := range nw.Conns {
		if c.Src == nil || c.Dst == nil {
			return types.Structuralf("连接 %s 缺少来源或目标组件", c.Label)
		}
		// 组分平衡依赖完全给定的组成做传播锚点；
		// 组成残缺时系统欠定，不能静默求解
		if c.FluidBalance && !c.FullySpecifiedFluid() {
			return types.Structuralf("连接 %s 使用组分平衡但组成未完全给定，系统欠定", c.Label)
		}
	}
	return nil
}

// PropagateFluids 组成传播
// 从所有组成完全给定的连接出发洪泛扩散；混合/分流类组件直接
// 透传，燃烧类组件合成通用烟气组成后继续传播。无法覆盖的连接
// 保持未解析，这不是致命状态。
func (nw *Network) PropagateFluids(sc *Scope) {
	var queue []*Connection
	for _, c := range nw.Conns {
		if c.FullySpecifiedFluid() {
			c.Comp = types.Resolved(c.FluidSpec).Normalize()
			queue = append(queue, c)
		}
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		// 向下游与上游两个方向扩散，由组件决定能解析哪些连接
		if c.Dst != nil {
			queue = append(queue, c.Dst.Propagate(c, sc)...)
		}
		if c.Src != nil {
			queue = append(queue, c.Src.Propagate(c, sc)...)
		}
	}
	unresolved := 0
	for _, c := range nw.Conns {
		if !c.Comp.IsResolved() {
			unresolved++
			nw.Log.Debug("组成未解析", "连接", c.Label)
		}
	}
	if unresolved > 0 {
		nw.Log.Debug("组成传播结束", "未解析连接数", unresolved)
	}
}
