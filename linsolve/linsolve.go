// Package linsolve 提供可插拔的线性求解后端。
// 求解器每次迭代将 J·Δx = −f 交给后端；后端之间数值结果在求解
// 容差内必须一致。GPU 后端同样通过 Backend 接口接入：持有设备
// 内存的实现必须保证包括失败在内的所有返回路径都释放缓冲。
package linsolve

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"flownet/types"
)

// 病态判定阈值
const condMax = 1e14

// Backend 线性求解后端
type Backend interface {
	Name() string
	// Solve 求解 A·x = b；矩阵奇异或病态时返回数值错误。
	Solve(a *mat.Dense, b []float64) ([]float64, error)
}

// Dense 稠密 LU 后端（gonum）
type Dense struct{}

// Name 后端名称
func (Dense) Name() string { return "dense" }

// Solve 稠密求解
func (Dense) Solve(a *mat.Dense, b []float64) ([]float64, error) {
	n, _ := a.Dims()
	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) || c > condMax {
		return nil, types.Numericalf(0, "矩阵奇异或病态 (cond=%.3e)，常见原因：方程线性相关、参数化不当或初值过差", c)
	}
	x := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(n, b)); err != nil {
		return nil, types.Numericalf(0, "线性求解失败: %v", err)
	}
	out := make([]float64, n)
	copy(out, x.RawVector().Data)
	return out, nil
}

// Sparse 稀疏消元后端
// 按行的哈希稀疏表示加列主元高斯消元。雅可比矩阵每行只有少数
// 非零元，规模大时比稠密分解省内存。
type Sparse struct{}

// Name 后端名称
func (Sparse) Name() string { return "sparse" }

// Solve 稀疏求解
func (Sparse) Solve(a *mat.Dense, b []float64) ([]float64, error) {
	n, _ := a.Dims()
	rows := make([]map[int]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = map[int]float64{}
		for j := 0; j < n; j++ {
			if v := a.At(i, j); v != 0 {
				rows[i][j] = v
			}
		}
	}
	rhs := make([]float64, n)
	copy(rhs, b)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	// 列主元消元
	for k := 0; k < n; k++ {
		pivot, pivotVal := -1, 0.0
		for i := k; i < n; i++ {
			if v := math.Abs(rows[perm[i]][k]); v > pivotVal {
				pivot, pivotVal = i, v
			}
		}
		if pivot < 0 || pivotVal < 1e-13 {
			return nil, types.Numericalf(0, "矩阵奇异或病态 (主元 %d 为 %.1e)，常见原因：方程线性相关、参数化不当或初值过差", k, pivotVal)
		}
		perm[k], perm[pivot] = perm[pivot], perm[k]
		pk := perm[k]
		diag := rows[pk][k]
		for i := k + 1; i < n; i++ {
			pi := perm[i]
			head, ok := rows[pi][k]
			if !ok {
				continue
			}
			factor := head / diag
			delete(rows[pi], k)
			for j, v := range rows[pk] {
				if j <= k {
					continue
				}
				nv := rows[pi][j] - factor*v
				if nv == 0 {
					delete(rows[pi], j)
				} else {
					rows[pi][j] = nv
				}
			}
			rhs[pi] -= factor * rhs[pk]
		}
	}
	// 回代
	x := make([]float64, n)
	for k := n - 1; k >= 0; k-- {
		pk := perm[k]
		sum := rhs[pk]
		for j, v := range rows[pk] {
			if j > k {
				sum -= v * x[j]
			}
		}
		x[k] = sum / rows[pk][k]
	}
	return x, nil
}
