package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	h := &History{}
	assert.Zero(t, h.Len())

	h.Record(1.5e3, 2.0)
	h.Record(4.2, 0.1)
	h.Record(1e-9, 1e-11)
	require.Equal(t, 3, h.Len())
	assert.Equal(t, []float64{1.5e3, 4.2, 1e-9}, h.Residual)
	assert.Equal(t, []float64{2.0, 0.1, 1e-11}, h.Increment)
}

func TestPlot(t *testing.T) {
	h := &History{}
	for _, v := range []float64{1e3, 10, 0.1, 1e-4, 0} {
		// 零范数在对数坐标下也必须能画
		h.Record(v, v/10)
	}
	path := filepath.Join(t.TempDir(), "trace.png")
	require.NoError(t, h.Plot(path), "绘图失败")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0), "输出文件为空")
}
