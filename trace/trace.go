// Package trace 记录迭代收敛历史并绘制残差曲线。
package trace

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// History 收敛历史
// 每次迭代记录一对范数；随求解结果返回供用户诊断。
type History struct {
	Residual  []float64 // 残差范数 ‖f(x)‖
	Increment []float64 // 增量范数 ‖Δx‖
}

// Record 追加一次迭代的范数
func (h *History) Record(res, inc float64) {
	h.Residual = append(h.Residual, res)
	h.Increment = append(h.Increment, inc)
}

// Len 迭代次数
func (h *History) Len() int { return len(h.Residual) }

// Plot 将残差与增量历史绘制为半对数曲线
func (h *History) Plot(path string) error {
	p := plot.New()
	p.Title.Text = "收敛历史"
	p.X.Label.Text = "迭代"
	p.Y.Label.Text = "范数"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	toXY := func(data []float64) plotter.XYs {
		xys := make(plotter.XYs, len(data))
		for i, v := range data {
			// 对数坐标不接受零
			if v <= 0 || math.IsNaN(v) {
				v = 1e-16
			}
			xys[i].X = float64(i + 1)
			xys[i].Y = v
		}
		return xys
	}
	res, err := plotter.NewLine(toXY(h.Residual))
	if err != nil {
		return err
	}
	inc, err := plotter.NewLine(toXY(h.Increment))
	if err != nil {
		return err
	}
	inc.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(res, inc)
	p.Legend.Add("残差", res)
	p.Legend.Add("增量", inc)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
