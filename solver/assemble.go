package solver

import (
	"math"

	"flownet/network"
	"flownet/types"
)

// record 方程记录
// 每条方程恰好对应雅可比的一行；残差与偏导带缓存，配合跳过
// 策略避免重复的昂贵物性计算。
type record struct {
	eq     network.Equation
	row    int
	res    float64         // 缓存残差
	derivs []network.Deriv // 缓存偏导贡献
	skips  int             // 单调递增的跳过计数
}

// buildEquations 收集全部方程记录并做数量校验
// 装配数量必须恰好等于变量数 n；不符是致命配置错误，
// 在任何雅可比装配之前报出。
func (s *Solver) buildEquations(sc *network.Scope) error {
	s.recs = s.recs[:0]
	add := func(eqs []network.Equation) {
		for _, eq := range eqs {
			s.recs = append(s.recs, &record{eq: eq, row: len(s.recs)})
		}
	}
	for _, c := range s.nw.Comps {
		add(c.Equations(sc))
	}
	for _, c := range s.nw.Conns {
		add(c.Equations(sc))
	}
	for _, b := range s.nw.Busses {
		add(b.Equations(sc))
	}
	if n := s.nw.NumVars(); len(s.recs) != n {
		return types.Structuralf(
			"方程数 %d 与变量数 %d 不符（欠定或过定参数化）",
			len(s.recs), n)
	}
	return nil
}

// shouldSkip 残差重算跳过判定
//   - 组件方程：|上次残差| < 阈值 且 迭代数不是组件周期的倍数
//   - 连接/母线方程：|上次残差| < 阈值 且 迭代数不是连接周期的倍数
//   - 温度类方程对混合物计算过于敏感，永远重算
func (s *Solver) shouldSkip(rec *record) bool {
	if s.opt.AlwaysAllEquations || rec.eq.Temperature || s.iter == 0 {
		return false
	}
	if math.Abs(rec.res) >= s.opt.SkipResidualTol {
		return false
	}
	if rec.eq.Kind == network.EqComponent {
		return s.iter%s.opt.ComponentSkipPeriod != 0
	}
	return s.iter%s.opt.ConnectionSkipPeriod != 0
}

// assemble 装配残差与雅可比
// 被跳过的方程保留上一迭代的行与残差；重算的方程先清零整行
// 再填入新的偏导贡献。
func (s *Solver) assemble(sc *network.Scope) error {
	n := s.vars.N()
	for _, rec := range s.recs {
		if s.shouldSkip(rec) {
			rec.skips++
			s.rhs[rec.row] = -rec.res
			continue
		}
		res, err := rec.eq.Residual(sc)
		if err != nil {
			return err
		}
		rec.res = res
		derivs, err := rec.eq.Jacobian(sc)
		if err != nil {
			return err
		}
		// 增量过滤省略掉的列沿用上一迭代的缓存值，
		// 保证每行的偏导记录始终完整
		if len(rec.derivs) > 0 {
			fresh := map[int]bool{}
			for _, d := range derivs {
				fresh[s.vars.Index(d.Conn, d.Kind, d.Index)] = true
			}
			for _, d := range rec.derivs {
				if !fresh[s.vars.Index(d.Conn, d.Kind, d.Index)] {
					derivs = append(derivs, d)
				}
			}
		}
		rec.derivs = derivs
		for j := 0; j < n; j++ {
			s.jac.Set(rec.row, j, 0)
		}
		for _, d := range derivs {
			col := s.vars.Index(d.Conn, d.Kind, d.Index)
			s.jac.Set(rec.row, col, s.jac.At(rec.row, col)+d.Val)
		}
		s.rhs[rec.row] = -res
	}
	return nil
}

// residualNorm 当前残差范数 ‖f(x)‖₂
func (s *Solver) residualNorm() float64 {
	sum := 0.0
	for _, rec := range s.recs {
		sum += rec.res * rec.res
	}
	return math.Sqrt(sum)
}
