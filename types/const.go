package types

// VarKind 系统变量类型
// 每条连接按 [质量流量, 压力, 比焓, 组分质量分数...] 的固定顺序
// 占据状态向量中的一段，拓扑冻结后顺序不再改变。
type VarKind int

const (
	VarMass     VarKind = iota // 质量流量 m (kg/s)
	VarPressure                // 压力 p (Pa)
	VarEnthalpy                // 比焓 h (J/kg)
	VarFluid                   // 组分质量分数 x[i] (-)
)

// String 变量类型名称
func (k VarKind) String() string {
	switch k {
	case VarMass:
		return "m"
	case VarPressure:
		return "p"
	case VarEnthalpy:
		return "h"
	case VarFluid:
		return "x"
	}
	return "?"
}

// VarsPerConn 每条连接占用的变量数量
func VarsPerConn(numFluids int) int { return 3 + numFluids }

// Range 数值范围 [Min, Max]
type Range struct {
	Min float64
	Max float64
}

// Valid 范围是否有效
func (r Range) Valid() bool { return r.Max > r.Min }

// Clip 将 v 压回范围内，返回压回后的值
func (r Range) Clip(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains 范围包含判断
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }
