// Package solver 实现耦合非线性方程组的 Newton–Raphson 求解核心：
// 状态向量管理、方程与雅可比装配、线性求解、收敛稳定化与
// 迭代控制状态机。
package solver

import (
	"flownet/linsolve"
	"flownet/network"
	"flownet/snapshot"
	"flownet/trace"

	"github.com/charmbracelet/log"
)

// State 迭代控制器终态
type State int

const (
	Initialized    State = iota // 仅初始化（init_only）
	Converged                   // 已收敛
	Diverged                    // 发散：线性求解失败或物性查询不可恢复
	MaxIterReached              // 达到迭代上限仍未收敛
)

// String 终态名称
func (s State) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Converged:
		return "CONVERGED"
	case Diverged:
		return "DIVERGED"
	case MaxIterReached:
		return "MAX_ITER_REACHED"
	}
	return "?"
}

// Options 求解配置
// 跳过策略的阈值与周期是经验常数，作为可配置字段保留，
// 默认值见 DefaultOptions。
type Options struct {
	Mode    network.Mode
	MaxIter int
	// MinIter 收敛前的最少迭代次数；无论配置为何都不低于 4，
	// 保证跳过策略生效时每条方程至少被计算两次。
	MinIter int
	Epsilon float64 // 收敛容差（残差范数）

	InitOnly           bool // 只做初始化
	InitPrevious       bool // 优先复用上次收敛解
	AlwaysAllEquations bool // 关闭跳过策略，全部重算

	// 跳过策略常数
	SkipResidualTol      float64 // 残差阈值
	SkipIncrementTol     float64 // 增量阈值
	ComponentSkipPeriod  int     // 组件方程重算周期
	ConnectionSkipPeriod int     // 连接/母线方程重算周期

	Backend linsolve.Backend // 线性求解后端

	DesignSnapshot *snapshot.Data // 设计快照（运行工况必需）
	InitSnapshot   *snapshot.Data // 初值快照（可只覆盖部分网络）

	Log *log.Logger
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		Mode:                 network.Design,
		MaxIter:              50,
		MinIter:              4,
		Epsilon:              1e-3,
		SkipResidualTol:      1e-12,
		SkipIncrementTol:     1e-12,
		ComponentSkipPeriod:  4,
		ConnectionSkipPeriod: 2,
		Backend:              linsolve.Dense{},
	}
}

// Result 求解结果
type Result struct {
	State         State
	ResidualNorm  float64 // 终止时残差范数
	IncrementNorm float64 // 终止时增量范数
	Iterations    int
	History       *trace.History // 收敛历史
}
