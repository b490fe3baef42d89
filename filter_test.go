package pulse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arkilian/pulse/pkg/types"
)

func TestSampledFilter_Deterministic(t *testing.T) {
	f := SampledFilter(50, "salt")
	e := types.NewEvent("engagement")

	first := f(e, nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, f(e, nil), "same event must always sample the same way")
	}
}

func TestSampledFilter_Extremes(t *testing.T) {
	all := SampledFilter(100, "salt")
	none := SampledFilter(0, "salt")

	for i := 0; i < 20; i++ {
		e := types.NewEvent(fmt.Sprintf("event_%d", i))
		assert.True(t, all(e, nil))
		assert.False(t, none(e, nil))
	}
}

func TestSampledFilter_RoughProportion(t *testing.T) {
	f := SampledFilter(30, "salt")

	admitted := 0
	const total = 2000
	for i := 0; i < total; i++ {
		if f(types.NewEvent(fmt.Sprintf("event_%d", i)), nil) {
			admitted++
		}
	}
	assert.InDelta(t, 0.30, float64(admitted)/total, 0.05)
}
