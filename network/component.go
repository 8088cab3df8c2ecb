package network

import (
	"flownet/snapshot"
	"flownet/types"
)

// Mode 求解工况
type Mode int

const (
	Design    Mode = iota // 设计工况
	Offdesign             // 运行工况，需要设计快照
)

// String 工况名称
func (m Mode) String() string {
	if m == Offdesign {
		return "offdesign"
	}
	return "design"
}

// EqKind 方程类别，跳过策略按类别使用不同的重算周期
type EqKind int

const (
	EqComponent  EqKind = iota // 组件方程
	EqConnection               // 连接定值方程
	EqBus                      // 母线方程
)

// Deriv 单条偏导贡献
// 指向某连接的某个变量，由雅可比布局器映射到矩阵列。
type Deriv struct {
	Conn  *Connection
	Kind  types.VarKind
	Index int // 组分序号，Kind==VarFluid 时有效
	Val   float64
}

// Equation 单条标量约束
// 每条方程恰好占据雅可比矩阵的一行；残差与偏导由闭包惰性计算，
// 装配器按跳过策略决定是否调用。
type Equation struct {
	Label       string // 诊断标识
	Kind        EqKind
	Temperature bool // 温度类方程：不参与任何跳过策略
	Residual    func(sc *Scope) (float64, error)
	Jacobian    func(sc *Scope) ([]Deriv, error)
}

// Component 组件能力接口
// 封闭的组件变体集合经注册表按类别构造；求解器只通过该接口
// 取方程、做收敛修正与初值建议。
type Component interface {
	Label() string
	Category() string

	// 拓扑
	InletCount() int
	OutletCount() int
	AttachInlet(i int, c *Connection) error
	AttachOutlet(i int, c *Connection) error
	Inlet(i int) *Connection
	Outlet(i int) *Connection
	Connected() error // 端口完整性检查

	// 方程：拓扑必选方程 + 每个用户定参数一条
	Equations(sc *Scope) []Equation

	// ConvergenceCheck 组件级物理合理性修正（稳定化第 4 步），
	// 原地修正连接值，从不报错。
	ConvergenceCheck(sc *Scope)

	// InitGuess 按组件类别给出连接变量的量级初值建议
	InitGuess(c *Connection, k types.VarKind) (float64, bool)

	// Propagate 组成传播：from 的组成已解析，返回因此新解析的连接
	Propagate(from *Connection, sc *Scope) []*Connection

	// Preprocess 求解前的一次性预处理；运行工况下从设计快照
	// 导出定参数（如阻力系数），设计工况下为空操作。
	Preprocess(mode Mode, ds *snapshot.Data) error
}
