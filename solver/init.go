package solver

import (
	"flownet/network"
	"flownet/snapshot"
	"flownet/types"
)

// initialize 初始化器
// 产生一个足够接近有效解的起始状态向量：拓扑校验、运行工况
// 预处理、组成传播、然后按优先级给未解析的变量填初值。
func (s *Solver) initialize(sc *network.Scope) error {
	// 1. 拓扑校验，结构错误直接中止
	if err := s.nw.Validate(); err != nil {
		return err
	}

	// 2. 运行工况预处理：从设计快照导出运行工况定参数
	if s.opt.Mode == network.Offdesign {
		for _, c := range s.nw.Comps {
			if err := c.Preprocess(s.opt.Mode, s.opt.DesignSnapshot); err != nil {
				return err
			}
		}
	}

	// 3. 组成传播
	s.nw.PropagateFluids(sc)

	// 4. 起始值
	usePrev := s.opt.InitPrevious && s.nw.Solved
	for _, c := range s.nw.Conns {
		if usePrev {
			// 上次收敛值仍在连接上，直接复用
			continue
		}
		s.seedConn(c)
	}

	s.vars.Load()
	return nil
}

// seedConn 为单条连接填充起始值
// 定值直接作为起始值；其余按 初值快照 → 设计快照 → 组件建议 →
// 通用量级 的顺序取第一个可用的。
func (s *Solver) seedConn(c *network.Connection) {
	fromSnap := func(k types.VarKind) (float64, bool) {
		pick := func(d *snapshot.Data) (float64, bool) {
			if d == nil {
				return 0, false
			}
			rec, ok := d.Conn(c.Label)
			if !ok {
				return 0, false
			}
			switch k {
			case types.VarMass:
				return rec.M, true
			case types.VarPressure:
				return rec.P, true
			default:
				return rec.H, true
			}
		}
		if v, ok := pick(s.opt.InitSnapshot); ok {
			return v, true
		}
		return pick(s.opt.DesignSnapshot)
	}
	guess := func(k types.VarKind, generic float64) float64 {
		if v, ok := fromSnap(k); ok {
			return v
		}
		if c.Src != nil {
			if v, ok := c.Src.InitGuess(c, k); ok {
				return v
			}
		}
		if c.Dst != nil {
			if v, ok := c.Dst.InitGuess(c, k); ok {
				return v
			}
		}
		return generic
	}

	if c.MSet {
		c.M = c.MSpec
	} else {
		c.M = guess(types.VarMass, 1.0)
	}
	if c.PSet {
		c.P = c.PSpec
	} else {
		c.P = guess(types.VarPressure, 1e5)
	}
	if c.HSet {
		c.H = c.HSpec
	} else {
		c.H = guess(types.VarEnthalpy, 1e5)
	}

	s.seedFluid(c)
}

// seedFluid 组成起始值
// 优先级：初值快照 → 传播结果 → 定值加均分补齐 → 均分。
// 传播无法解析的连接不是致命状态，退回通用默认值。
func (s *Solver) seedFluid(c *network.Connection) {
	nf := s.nw.NumFluids()
	if d := s.opt.InitSnapshot; d != nil {
		if rec, ok := d.Conn(c.Label); ok && len(rec.Fluid) == nf {
			copy(c.X, rec.Fluid)
			return
		}
	}
	if c.Comp.IsResolved() {
		copy(c.X, c.Comp.Fractions())
		return
	}
	// 部分定值：定值照抄，剩余组分均分余量
	known, cnt := 0.0, 0
	for i, set := range c.FluidSet {
		if set {
			c.X[i] = c.FluidSpec[i]
			known += c.FluidSpec[i]
			cnt++
		}
	}
	rest := 1.0 - known
	if rest < 0 {
		rest = 0
	}
	free := nf - cnt
	for i, set := range c.FluidSet {
		if !set {
			c.X[i] = rest / float64(free)
		}
	}
}
