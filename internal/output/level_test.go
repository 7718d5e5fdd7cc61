package output

import (
	"math"
	"testing"
)

func TestMemoryClamps(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{3, 1},
		{math.NaN(), 0},
	}
	m := NewMemory(1)
	for _, tt := range tests {
		m.SetLevel(tt.in)
		if got := m.Level(); got != tt.want {
			t.Errorf("SetLevel(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSilence(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	n, err := Silence{}.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Errorf("buf[%d] = %d", i, b)
		}
	}
}
