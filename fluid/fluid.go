// Package fluid 定义物性数据库后端的能力接口。
// 求解器只依赖该接口；真实的物性数据库（混合物状态方程等）
// 作为外部协作方接入，包内自带一个用于测试与演示的理想后端。
package fluid

import (
	"fmt"

	"flownet/types"
)

// Props 物性查询结果
type Props struct {
	T float64 // 温度 (K)
	S float64 // 比熵 (J/kgK)
	V float64 // 比容 (m3/kg)
	X float64 // 干度 (-)，不适用时为 -1
}

// Backend 物性数据库后端
// 所有查询以 (组成, 压力, 焓) 为输入；输入超出后端适用域或组成
// 未解析时返回 *LookupError。
type Backend interface {
	// Fluids 后端按顺序支持的组分名称
	Fluids() []string
	// Props 完整物性查询
	Props(x []float64, p, h float64) (Props, error)
	// T 温度查询（Props 的快捷方式）
	T(x []float64, p, h float64) (float64, error)
	// PRange HRange 后端适用域，稳定化阶段用于把纯流体工况点压回有效范围
	PRange() types.Range
	HRange() types.Range
}

// LookupError 物性查询错误
// 携带连接与物性名称，便于用户定位是哪个工况点越界。
type LookupError struct {
	Conn   string // 连接标签（可为空）
	Prop   string // 查询的物性
	Reason string
}

// Error 错误信息
func (e *LookupError) Error() string {
	if e.Conn != "" {
		return fmt.Sprintf("物性查询失败(连接 %s, %s): %s", e.Conn, e.Prop, e.Reason)
	}
	return fmt.Sprintf("物性查询失败(%s): %s", e.Prop, e.Reason)
}

// 数值微分步长
const (
	dP = 1.0  // 压力扰动 (Pa)
	dH = 1.0  // 焓扰动 (J/kg)
	dX = 1e-5 // 组分扰动 (-)
)

// DTdp 温度对压力的数值偏导（中心差分）
func DTdp(b Backend, x []float64, p, h float64) (float64, error) {
	tu, err := b.T(x, p+dP, h)
	if err != nil {
		return 0, err
	}
	tl, err := b.T(x, p-dP, h)
	if err != nil {
		return 0, err
	}
	return (tu - tl) / (2 * dP), nil
}

// DTdh 温度对焓的数值偏导（中心差分）
func DTdh(b Backend, x []float64, p, h float64) (float64, error) {
	tu, err := b.T(x, p, h+dH)
	if err != nil {
		return 0, err
	}
	tl, err := b.T(x, p, h-dH)
	if err != nil {
		return 0, err
	}
	return (tu - tl) / (2 * dH), nil
}

// DTdx 温度对第 i 个组分质量分数的数值偏导（中心差分）
func DTdx(b Backend, x []float64, p, h float64, i int) (float64, error) {
	xu := make([]float64, len(x))
	xl := make([]float64, len(x))
	copy(xu, x)
	copy(xl, x)
	xu[i] += dX
	xl[i] -= dX
	if xl[i] < 0 {
		xl[i] = 0
	}
	tu, err := b.T(xu, p, h)
	if err != nil {
		return 0, err
	}
	tl, err := b.T(xl, p, h)
	if err != nil {
		return 0, err
	}
	return (tu - tl) / (xu[i] - xl[i]), nil
}
