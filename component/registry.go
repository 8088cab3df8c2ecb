package component

import (
	"flownet/network"
	"flownet/types"
)

// Factory 组件构造函数
type Factory func(label string) network.Component

// registry 组件类别注册表
var registry = map[string]Factory{}

// Register 注册组件类别
func Register(category string, fn Factory) {
	if _, ok := registry[category]; ok {
		panic("组件类别重复注册: " + category)
	}
	registry[category] = fn
}

// New 按类别构造组件
func New(category, label string) (network.Component, error) {
	fn, ok := registry[category]
	if !ok {
		return nil, types.Structuralf("未知组件类别: %s", category)
	}
	return fn(label), nil
}

// Categories 已注册类别列表
func Categories() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

func init() {
	Register("source", func(l string) network.Component { return NewSource(l) })
	Register("sink", func(l string) network.Component { return NewSink(l) })
	Register("pump", func(l string) network.Component { return NewPump(l) })
	Register("turbine", func(l string) network.Component { return NewTurbine(l) })
	Register("valve", func(l string) network.Component { return NewValve(l) })
	Register("heat exchanger simple", func(l string) network.Component { return NewSimpleHeatExchanger(l) })
	Register("merge", func(l string) network.Component { return NewMerge(l, 2) })
	Register("splitter", func(l string) network.Component { return NewSplitter(l, 2) })
	Register("separator", func(l string) network.Component { return NewSeparator(l, 2) })
	Register("combustion chamber", func(l string) network.Component { return NewCombustionChamber(l) })
}
