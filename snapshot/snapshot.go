// Package snapshot 实现设计/初值快照的文件持久化。
// 快照是与求解器内部表示解耦的纯数据结构：按标签索引的数值字段，
// 读入后先做维度与标签校验，再交给初始化器使用。
package snapshot

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ConnRecord 单条连接的快照记录
type ConnRecord struct {
	M     float64   `toml:"m"`     // 质量流量 (kg/s)
	P     float64   `toml:"p"`     // 压力 (Pa)
	H     float64   `toml:"h"`     // 比焓 (J/kg)
	Fluid []float64 `toml:"fluid"` // 组分质量分数，顺序与 Fluids 一致
}

// Data 快照数据
// 运行工况预处理读取设计快照，初始化器读取初值快照；
// 两者结构相同，允许只覆盖网络的一部分。
type Data struct {
	Fluids      []string                      `toml:"fluids"`
	Connections map[string]ConnRecord         `toml:"connections"`
	Components  map[string]map[string]float64 `toml:"components"`
}

// DimensionMismatchError 组分维度不符错误
// 快照的组成向量维度必须与网络完全一致，否则整个快照被拒绝。
type DimensionMismatchError struct {
	Label string // 触发校验失败的条目（空表示头部组分表）
	Want  int
	Got   int
}

// Error 错误信息
func (e *DimensionMismatchError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("快照组分维度不符: 期望 %d, 实际 %d", e.Want, e.Got)
	}
	return fmt.Sprintf("快照组分维度不符(连接 %s): 期望 %d, 实际 %d", e.Label, e.Want, e.Got)
}

// New 构造空快照
func New(fluids []string) *Data {
	return &Data{
		Fluids:      append([]string(nil), fluids...),
		Connections: map[string]ConnRecord{},
		Components:  map[string]map[string]float64{},
	}
}

// Validate 校验快照与网络组分表的一致性
func (d *Data) Validate(fluids []string) error {
	if len(d.Fluids) != len(fluids) {
		return &DimensionMismatchError{Want: len(fluids), Got: len(d.Fluids)}
	}
	for i, name := range fluids {
		if d.Fluids[i] != name {
			return fmt.Errorf("快照组分顺序不符: 位置 %d 期望 %s, 实际 %s", i, name, d.Fluids[i])
		}
	}
	for label, rec := range d.Connections {
		if len(rec.Fluid) != len(fluids) {
			return &DimensionMismatchError{Label: label, Want: len(fluids), Got: len(rec.Fluid)}
		}
	}
	return nil
}

// Conn 按标签取连接记录
func (d *Data) Conn(label string) (ConnRecord, bool) {
	rec, ok := d.Connections[label]
	return rec, ok
}

// Comp 按标签与字段名取组件设计值
func (d *Data) Comp(label, field string) (float64, bool) {
	m, ok := d.Components[label]
	if !ok {
		return 0, false
	}
	v, ok := m[field]
	return v, ok
}

// Load 从 TOML 文件读取快照并按网络组分表校验
func Load(path string, fluids []string) (*Data, error) {
	var d Data
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return nil, fmt.Errorf("快照读取失败: %w", err)
	}
	if err := d.Validate(fluids); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save 将快照写入 TOML 文件
func (d *Data) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("快照写入失败: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(d); err != nil {
		return fmt.Errorf("快照编码失败: %w", err)
	}
	return nil
}
