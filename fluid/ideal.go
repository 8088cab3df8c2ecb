package fluid

import (
	"math"

	"flownet/types"
)

// Spec 理想后端中单个组分的模型参数
type Spec struct {
	Cp  float64 // 定压比热 (J/kgK)
	R   float64 // 气体常数 (J/kgK)，0 表示不可压液体
	Rho float64 // 密度 (kg/m3)，仅液体使用
}

// 常用组分的默认参数
var defaultSpecs = map[string]Spec{
	"water": {Cp: 4180, Rho: 998},
	"N2":    {Cp: 1040, R: 296.8},
	"O2":    {Cp: 918, R: 259.8},
	"CO2":   {Cp: 844, R: 188.9},
	"H2O":   {Cp: 1860, R: 461.5},
	"CH4":   {Cp: 2220, R: 518.3},
	"Ar":    {Cp: 520, R: 208.1},
}

// IdealBackend 理想混合物后端
// 液体按不可压、气体按理想气体处理，温度由 T = T0 + h/cp_mix 给出。
// 只用于测试与演示，精度不追求工程级。
type IdealBackend struct {
	fluids []string
	specs  []Spec
	pRange types.Range
	hRange types.Range
}

// NewIdealBackend 按组分名称构造理想后端
// 未知组分按空气近似（cp=1005, R=287）处理。
func NewIdealBackend(fluids []string) *IdealBackend {
	b := &IdealBackend{
		fluids: append([]string(nil), fluids...),
		specs:  make([]Spec, len(fluids)),
		pRange: types.Range{Min: 1e3, Max: 1e8},
		hRange: types.Range{Min: 1e3, Max: 5e6},
	}
	for i, name := range fluids {
		if s, ok := defaultSpecs[name]; ok {
			b.specs[i] = s
		} else {
			b.specs[i] = Spec{Cp: 1005, R: 287}
		}
	}
	return b
}

// Fluids 组分名称
func (b *IdealBackend) Fluids() []string { return b.fluids }

// PRange 压力适用域
func (b *IdealBackend) PRange() types.Range { return b.pRange }

// HRange 焓适用域
func (b *IdealBackend) HRange() types.Range { return b.hRange }

// 参考温度：焓零点对应 0°C
const refT = 273.15

// Props 物性查询
func (b *IdealBackend) Props(x []float64, p, h float64) (Props, error) {
	if err := b.check(x, p, h); err != nil {
		return Props{}, err
	}
	cp := b.cpMix(x)
	t := refT + h/cp
	// 混合比容：液体组分用密度，气体组分用理想气体
	v := 0.0
	for i, s := range b.specs {
		if x[i] <= 0 {
			continue
		}
		if s.R == 0 {
			v += x[i] / s.Rho
		} else {
			v += x[i] * s.R * t / p
		}
	}
	// 近似熵：s = cp*ln(T/T0) - R_mix*ln(p/p0)
	rm := 0.0
	for i, s := range b.specs {
		rm += x[i] * s.R
	}
	ent := cp*math.Log(t/refT) - rm*math.Log(p/1e5)
	return Props{T: t, S: ent, V: v, X: -1}, nil
}

// T 温度查询
func (b *IdealBackend) T(x []float64, p, h float64) (float64, error) {
	if err := b.check(x, p, h); err != nil {
		return 0, err
	}
	return refT + h/b.cpMix(x), nil
}

// cpMix 混合物定压比热
func (b *IdealBackend) cpMix(x []float64) float64 {
	cp := 0.0
	for i, s := range b.specs {
		cp += x[i] * s.Cp
	}
	if cp <= 0 {
		// 组成全零时退回空气值，避免除零
		cp = 1005
	}
	return cp
}

// check 输入校验
func (b *IdealBackend) check(x []float64, p, h float64) error {
	if x == nil {
		return &LookupError{Prop: "T", Reason: "流体组成未解析"}
	}
	if len(x) != len(b.fluids) {
		return &LookupError{Prop: "T", Reason: "组成向量维度不符"}
	}
	if !b.pRange.Contains(p) {
		return &LookupError{Prop: "p", Reason: "压力超出后端适用域"}
	}
	if !b.hRange.Contains(h) {
		return &LookupError{Prop: "h", Reason: "焓超出后端适用域"}
	}
	return nil
}
