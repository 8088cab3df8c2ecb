// Package flownet 求解互联过程组件网络上的质量、能量与压力
// 平衡：组件与连接构成拓扑，状态向量按连接展开，Newton–Raphson
// 迭代驱动方程组收敛。组件方程、物性后端与快照格式都通过窄
// 接口接入，核心只负责求解。
package flownet

import (
	"github.com/charmbracelet/log"

	"flownet/fluid"
	"flownet/network"
	"flownet/snapshot"
	"flownet/solver"
)

// Plant 过程网络求解门面
type Plant struct {
	*network.Network
}

// New 构造网络，组分表取自物性后端
func New(backend fluid.Backend, logger *log.Logger) *Plant {
	return &Plant{Network: network.New(backend, logger)}
}

// Solve 求解网络
// 每次调用独立重置收敛状态；同一 Plant 不允许并发求解。
func (p *Plant) Solve(opt solver.Options) (*solver.Result, error) {
	return solver.New(p.Network, opt).Solve()
}

// Snapshot 当前连接值的快照
// 收敛后的设计工况解写盘即为设计快照，供运行工况与初值种子使用。
func (p *Plant) Snapshot() *snapshot.Data {
	d := snapshot.New(p.Fluids)
	for _, c := range p.Conns {
		d.Connections[c.Label] = snapshot.ConnRecord{
			M:     c.M,
			P:     c.P,
			H:     c.H,
			Fluid: append([]float64(nil), c.X...),
		}
	}
	return d
}
