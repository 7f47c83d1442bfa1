package amm

import (
	"math/big"
	"testing"
)

func TestDivFloorCeil(t *testing.T) {
	cases := []struct {
		num, den    int64
		floor, ceil int64
	}{
		{10, 3, 3, 4},
		{9, 3, 3, 3},
		{1, 2, 0, 1},
		{0, 5, 0, 0},
	}
	for _, c := range cases {
		if got := DivFloor(big.NewInt(c.num), big.NewInt(c.den)).Int64(); got != c.floor {
			t.Errorf("DivFloor(%d, %d) = %d, want %d", c.num, c.den, got, c.floor)
		}
		if got := DivCeil(big.NewInt(c.num), big.NewInt(c.den)).Int64(); got != c.ceil {
			t.Errorf("DivCeil(%d, %d) = %d, want %d", c.num, c.den, got, c.ceil)
		}
	}
}

func TestDivHalfEven(t *testing.T) {
	cases := []struct {
		num, den, want int64
	}{
		{5, 2, 2},  // 2.5 ties to even 2
		{7, 2, 4},  // 3.5 ties to even 4
		{11, 4, 3}, // 2.75 rounds up
		{9, 4, 2},  // 2.25 rounds down
		{6, 2, 3},  // exact
	}
	for _, c := range cases {
		if got := DivHalfEven(big.NewInt(c.num), big.NewInt(c.den)).Int64(); got != c.want {
			t.Errorf("DivHalfEven(%d, %d) = %d, want %d", c.num, c.den, got, c.want)
		}
	}
}
