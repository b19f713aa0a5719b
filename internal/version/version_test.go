package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewer(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v1.4.0"

	tests := []struct {
		producer string
		want     bool
	}{
		{"v1.4.0", false},
		{"1.3.9", false},
		{"v1.4.1", true},
		{"2.0.0", true},
		{"v1.5.0-rc.1", true},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.producer, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.producer))
		})
	}
}
