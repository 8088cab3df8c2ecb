package types

import "math"

// Composition 流体组成（质量分数）
// 显式区分“已解析/未解析”两种状态：组成传播无法覆盖的连接保持
// 未解析，下游物性查询必须显式处理该情况，而不是依赖哨兵数值
// 在后端深处触发域错误。
type Composition struct {
	resolved bool
	frac     []float64
}

// Unresolved 构造未解析组成
func Unresolved() Composition { return Composition{} }

// Resolved 构造已解析组成（拷贝输入切片）
func Resolved(frac []float64) Composition {
	c := Composition{resolved: true, frac: make([]float64, len(frac))}
	copy(c.frac, frac)
	return c
}

// IsResolved 是否已解析
func (c Composition) IsResolved() bool { return c.resolved }

// Fractions 质量分数切片（未解析时返回 nil）
func (c Composition) Fractions() []float64 {
	if !c.resolved {
		return nil
	}
	return c.frac
}

// Equal 组成比较（容差 1e-9）
func (c Composition) Equal(o Composition) bool {
	if c.resolved != o.resolved || len(c.frac) != len(o.frac) {
		return false
	}
	for i := range c.frac {
		if math.Abs(c.frac[i]-o.frac[i]) > 1e-9 {
			return false
		}
	}
	return true
}

// Normalize 归一化为和为 1 的分数（全零时均分）
func (c Composition) Normalize() Composition {
	if !c.resolved {
		return c
	}
	sum := 0.0
	for _, v := range c.frac {
		sum += v
	}
	out := make([]float64, len(c.frac))
	if sum <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(len(out))
		}
	} else {
		for i, v := range c.frac {
			out[i] = v / sum
		}
	}
	return Resolved(out)
}
