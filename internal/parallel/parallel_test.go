package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"default", 1000, DefaultConfig()},
		{"sequential", 100, Config{Workers: 1}},
		{"below threshold", 3, Config{Workers: 8, MinItems: 4}},
		{"more workers than items", 5, Config{Workers: 64}},
		{"empty", 0, DefaultConfig()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			var total atomic.Int64
			For(tt.n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
				total.Add(1)
			}, tt.cfg)

			assert.Equal(t, int64(tt.n), total.Load())
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestForResultsBySlot(t *testing.T) {
	out := make([]int, 50)
	For(len(out), func(i int) { out[i] = i * i }, Config{Workers: 4, MinItems: 1})
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}
