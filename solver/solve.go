package solver

import (
	"math"
	"os"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"flownet/network"
	"flownet/trace"
	"flownet/types"
)

// Solver 迭代控制器
// 状态机 INITIALIZING → ITERATING → CONVERGED | DIVERGED |
// MAX_ITER_REACHED。一次求解独占状态向量与雅可比；同一网络
// 实例上的并发求解不被允许，相互独立的网络可以并行求解。
// 求解调用同步阻塞直到终态，唯一的内建超时是迭代上限。
type Solver struct {
	nw  *network.Network
	opt Options
	log *log.Logger

	vars  *Vars
	recs  []*record
	jac   *mat.Dense
	rhs   []float64
	moved []bool // 上一步各变量增量是否显著

	iter    int
	history *trace.History
}

// New 构造求解器
func New(nw *network.Network, opt Options) *Solver {
	if opt.MaxIter <= 0 {
		opt.MaxIter = 50
	}
	// min_iter 下限固定为 4：跳过策略生效时保证每条方程
	// 至少被计算两次
	if opt.MinIter < 4 {
		opt.MinIter = 4
	}
	if opt.Epsilon <= 0 {
		opt.Epsilon = 1e-3
	}
	if opt.SkipResidualTol <= 0 {
		opt.SkipResidualTol = 1e-12
	}
	if opt.SkipIncrementTol <= 0 {
		opt.SkipIncrementTol = 1e-12
	}
	if opt.ComponentSkipPeriod <= 0 {
		opt.ComponentSkipPeriod = 4
	}
	if opt.ConnectionSkipPeriod <= 0 {
		opt.ConnectionSkipPeriod = 2
	}
	if opt.Backend == nil {
		opt.Backend = DefaultOptions().Backend
	}
	logger := opt.Log
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Solver{nw: nw, opt: opt, log: logger}
}

// scope 当前迭代的方程计算上下文
func (s *Solver) scope() *network.Scope {
	sc := s.nw.Scope()
	sc.Log = s.log
	sc.Iteration = s.iter
	if !s.opt.AlwaysAllEquations {
		sc.Moved = func(c *network.Connection, k types.VarKind, idx int) bool {
			return s.moved[s.vars.Index(c, k, idx)]
		}
	}
	return sc
}

// Solve 求解入口
// 结构错误在进入初始化之前或初始化中报出，此时返回 nil 结果；
// 迭代中的致命错误返回 DIVERGED 终态与错误值。
func (s *Solver) Solve() (*Result, error) {
	// 入口检查：运行工况必须有设计快照，且快照维度与网络一致
	if s.opt.Mode == network.Offdesign && s.opt.DesignSnapshot == nil {
		return nil, types.Structuralf("运行工况缺少设计快照")
	}
	if s.opt.DesignSnapshot != nil {
		if err := s.opt.DesignSnapshot.Validate(s.nw.Fluids); err != nil {
			return nil, err
		}
	}
	if s.opt.InitSnapshot != nil {
		if err := s.opt.InitSnapshot.Validate(s.nw.Fluids); err != nil {
			return nil, err
		}
	}

	// 冻结拓扑，分配索引，重置收敛状态
	s.vars = newVars(s.nw.Conns, s.nw.NumFluids())
	n := s.vars.N()
	s.jac = mat.NewDense(n, n, nil)
	s.rhs = make([]float64, n)
	s.moved = make([]bool, n)
	for i := range s.moved {
		s.moved[i] = true
	}
	s.iter = 0
	s.history = &trace.History{}

	// INITIALIZING
	sc := s.scope()
	if err := s.initialize(sc); err != nil {
		return nil, err
	}
	if err := s.buildEquations(sc); err != nil {
		return nil, err
	}
	s.log.Debug("初始化完成", "变量数", n, "方程数", len(s.recs), "工况", s.opt.Mode)
	if s.opt.InitOnly {
		return &Result{State: Initialized, History: s.history}, nil
	}

	// ITERATING
	var resNorm, incNorm float64
	for s.iter = 0; s.iter < s.opt.MaxIter; s.iter++ {
		sc = s.scope()
		if err := s.assemble(sc); err != nil {
			// 物性查询失败：在发生的迭代处致命
			return &Result{
				State: Diverged, ResidualNorm: resNorm,
				IncrementNorm: incNorm, Iterations: s.iter, History: s.history,
			}, err
		}
		resNorm = s.residualNorm()
		if math.IsNaN(resNorm) || math.IsInf(resNorm, 0) {
			return &Result{
					State: Diverged, ResidualNorm: resNorm,
					IncrementNorm: incNorm, Iterations: s.iter, History: s.history,
				},
				types.Numericalf(s.iter, "残差范数为 NaN/Inf")
		}

		dx, err := s.opt.Backend.Solve(s.jac, s.rhs)
		if err != nil {
			if ne, ok := err.(*types.NumericalError); ok {
				ne.Iter = s.iter
			}
			return &Result{
				State: Diverged, ResidualNorm: resNorm,
				IncrementNorm: incNorm, Iterations: s.iter, History: s.history,
			}, err
		}

		// 应用增量并记录各变量的变化量
		data := s.vars.Data()
		for i := range data {
			data[i] += dx[i]
			s.moved[i] = math.Abs(dx[i]) >= s.opt.SkipIncrementTol
		}
		s.vars.Store()

		// 稳定化：压回物理/数值有效范围
		s.stabilize(sc)

		incNorm = floats.Norm(dx, 2)
		s.history.Record(resNorm, incNorm)
		s.log.Debug("迭代", "n", s.iter+1, "残差", resNorm, "增量", incNorm)

		if resNorm < s.opt.Epsilon && s.iter+1 >= s.opt.MinIter {
			s.nw.Solved = true
			s.log.Info("收敛", "迭代", s.iter+1, "残差", resNorm)
			return &Result{
				State: Converged, ResidualNorm: resNorm,
				IncrementNorm: incNorm, Iterations: s.iter + 1, History: s.history,
			}, nil
		}
	}

	s.log.Warn("达到迭代上限", "迭代", s.opt.MaxIter, "残差", resNorm)
	return &Result{
		State: MaxIterReached, ResidualNorm: resNorm,
		IncrementNorm: incNorm, Iterations: s.opt.MaxIter, History: s.history,
	}, nil
}

// SkipCounts 各方程的跳过计数（诊断用）
func (s *Solver) SkipCounts() map[string]int {
	out := map[string]int{}
	for _, rec := range s.recs {
		out[rec.eq.Label] += rec.skips
	}
	return out
}
