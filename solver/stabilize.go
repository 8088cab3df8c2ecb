package solver

import "flownet/network"

// 纯流体判定：主组分质量分数超过该值
const pureTol = 1e-4

// stabilize 收敛稳定化
// 每次增量加到状态向量之后、下次残差计算之前调用。Newton 步
// 不懂物理可行性，这里把迭代点压回物性计算有定义的区域；
// 从不报错，原地静默修正。
func (s *Solver) stabilize(sc *network.Scope) {
	// 前几次迭代且未提供初值快照时，额外执行范围与组件修正
	early := s.iter < 3 && s.opt.InitSnapshot == nil

	pr := s.nw.Backend.PRange()
	hr := s.nw.Backend.HRange()
	for _, c := range s.nw.Conns {
		// 1. 质量分数永远压回 [0,1]
		for i := range c.X {
			if c.X[i] < 0 {
				c.X[i] = 0
			} else if c.X[i] > 1 {
				c.X[i] = 1
			}
		}
		if s.isPure(c) {
			// 2. 纯流体 p/h 永远压回后端适用域边界
			c.P = pr.Clip(c.P)
			c.H = hr.Clip(c.H)
		} else if early {
			// 3. 混合物在早期迭代压回用户给定范围
			if c.MRange.Valid() {
				c.M = c.MRange.Clip(c.M)
			}
			if c.PRange.Valid() {
				c.P = c.PRange.Clip(c.P)
			}
			if c.HRange.Valid() {
				c.H = c.HRange.Clip(c.H)
			}
		}
	}

	// 4. 组件级物理合理性修正，与第 3 步同一门控
	if early {
		for _, c := range s.nw.Comps {
			c.ConvergenceCheck(sc)
		}
	}

	// 修正过的连接值回写状态向量
	s.vars.Load()
}

// isPure 是否纯流体工况点
func (s *Solver) isPure(c *network.Connection) bool {
	if s.nw.NumFluids() == 1 {
		return true
	}
	for _, x := range c.X {
		if x > 1-pureTol {
			return true
		}
	}
	return false
}
