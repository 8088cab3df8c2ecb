package types

import "fmt"

// StructuralError 结构性错误
// 拓扑不完整、方程数与变量数不符、运行工况缺少设计快照等
// 配置层面的问题，在进入迭代之前抛出，不可自动恢复。
type StructuralError struct {
	Msg string
}

// Error 错误信息
func (e *StructuralError) Error() string { return "结构错误: " + e.Msg }

// Structuralf 构造结构性错误
func Structuralf(format string, a ...any) error {
	return &StructuralError{Msg: fmt.Sprintf(format, a...)}
}

// NumericalError 数值错误
// 雅可比矩阵奇异或病态（常见原因：方程线性相关、参数化不当、
// 初值过差），求解器转入发散终态，不做自动重试。
type NumericalError struct {
	Msg  string
	Iter int // 发生错误的迭代序号
}

// Error 错误信息
func (e *NumericalError) Error() string {
	return fmt.Sprintf("数值错误(迭代 %d): %s", e.Iter, e.Msg)
}

// Numericalf 构造数值错误
func Numericalf(iter int, format string, a ...any) error {
	return &NumericalError{Iter: iter, Msg: fmt.Sprintf(format, a...)}
}
