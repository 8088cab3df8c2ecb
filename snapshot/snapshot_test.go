package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	fluids := []string{"water", "N2"}
	d := New(fluids)
	d.Connections["c1"] = ConnRecord{M: 5, P: 2e5, H: 2e5, Fluid: []float64{0.7, 0.3}}
	d.Connections["c2"] = ConnRecord{M: 5, P: 6e5, H: 2.002e5, Fluid: []float64{0.7, 0.3}}
	d.Components["valve"] = map[string]float64{"zeta": 5e4}

	path := filepath.Join(t.TempDir(), "design.toml")
	require.NoError(t, d.Save(path), "快照写入失败")

	got, err := Load(path, fluids)
	require.NoError(t, err, "快照读取失败")
	assert.Equal(t, d.Fluids, got.Fluids)

	rec, ok := got.Conn("c1")
	require.True(t, ok)
	assert.Equal(t, 5.0, rec.M)
	assert.Equal(t, 2e5, rec.P)
	assert.Equal(t, []float64{0.7, 0.3}, rec.Fluid)

	zeta, ok := got.Comp("valve", "zeta")
	require.True(t, ok)
	assert.Equal(t, 5e4, zeta)

	_, ok = got.Conn("missing")
	assert.False(t, ok)
}

func TestValidateDimensions(t *testing.T) {
	d := New([]string{"water"})
	var dm *DimensionMismatchError

	// 组分表维度不符
	err := d.Validate([]string{"water", "N2"})
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Want)
	assert.Equal(t, 1, dm.Got)

	// 组分顺序不符
	d2 := New([]string{"N2", "water"})
	require.Error(t, d2.Validate([]string{"water", "N2"}))

	// 连接记录组成维度不符
	d3 := New([]string{"water", "N2"})
	d3.Connections["c1"] = ConnRecord{M: 1, Fluid: []float64{1}}
	err = d3.Validate([]string{"water", "N2"})
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, "c1", dm.Label)
}

func TestLoadRejectsMismatch(t *testing.T) {
	d := New([]string{"water"})
	d.Connections["c1"] = ConnRecord{M: 1, Fluid: []float64{1}}
	path := filepath.Join(t.TempDir(), "snap.toml")
	require.NoError(t, d.Save(path))

	_, err := Load(path, []string{"water", "N2"})
	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm, "维度不符的快照必须整体拒绝")

	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"), []string{"water"})
	require.Error(t, err, "文件不存在应报错")
}
