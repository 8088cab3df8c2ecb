package network

// EnergyProvider 可接入能量母线的组件
// 返回组件当前传递的功率及其对系统变量的偏导。
type EnergyProvider interface {
	Component
	EnergyFlow() (float64, []Deriv)
}

// Bus 能量母线
// 汇聚若干组件的能量流；给定总功率时贡献一条方程。
type Bus struct {
	Label   string
	PSet    bool
	PSpec   float64 // 总功率定值 (W)
	members []EnergyProvider
}

// NewBus 构造母线
func NewBus(label string) *Bus { return &Bus{Label: label} }

// SetP 设置总功率定值
func (b *Bus) SetP(v float64) { b.PSet, b.PSpec = true, v }

// Add 接入组件
func (b *Bus) Add(cs ...EnergyProvider) {
	b.members = append(b.members, cs...)
}

// Members 成员列表
func (b *Bus) Members() []EnergyProvider { return b.members }

// SpecCount 该母线贡献的方程数量
func (b *Bus) SpecCount() int {
	if b.PSet {
		return 1
	}
	return 0
}

// Flow 母线当前总能量流
func (b *Bus) Flow() float64 {
	sum := 0.0
	for _, m := range b.members {
		p, _ := m.EnergyFlow()
		sum += p
	}
	return sum
}

// Equations 母线方程：Σ P_i − P_bus = 0
func (b *Bus) Equations(sc *Scope) []Equation {
	if !b.PSet {
		return nil
	}
	return []Equation{{
		Label: b.Label + ":P",
		Kind:  EqBus,
		Residual: func(*Scope) (float64, error) {
			return b.Flow() - b.PSpec, nil
		},
		Jacobian: func(sc *Scope) ([]Deriv, error) {
			var ds []Deriv
			for _, m := range b.members {
				_, md := m.EnergyFlow()
				ds = append(ds, md...)
			}
			return sc.FilterMoved(ds), nil
		},
	}}
}
