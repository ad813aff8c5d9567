package internal

import (
	"math"
	"testing"
)

func TestIntegerRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, MaxInteger, MinInteger}
	for _, n := range cases {
		v := IntegerValue(n)
		if v.Tag() != TagInteger {
			t.Errorf("IntegerValue(%d) has tag %d", n, v.Tag())
		}
		if got := v.Integer(); got != n {
			t.Errorf("IntegerValue(%d).Integer() = %d", n, got)
		}
	}
}

func TestIntegerWraps(t *testing.T) {
	v := IntegerValue(MaxInteger + 1)
	if got := v.Integer(); got != MinInteger {
		t.Errorf("encoding MaxInteger+1 gave %d, want wrap to %d", got, MinInteger)
	}
}

func TestFloatRoundTrip(t *testing.T) {
	cases := []float64{0, 1, -1, 3.5, -2.25, math.Inf(1), math.Inf(-1)}
	for _, f := range cases {
		v := FloatValue(f)
		if v.Tag() != TagFloat {
			t.Errorf("FloatValue(%g) has tag %d", f, v.Tag())
		}
		if got := v.Float(); got != f {
			t.Errorf("FloatValue(%g).Float() = %g", f, got)
		}
	}
}

func TestFloatLosesOnlyTagBits(t *testing.T) {
	f := 1.0000000000000002 // low mantissa bits set
	v := FloatValue(f)
	got := v.Float()
	if math.Abs(got-f) > 4*math.SmallestNonzeroFloat64*math.Abs(f) && got != 1.0 {
		t.Errorf("FloatValue(%v).Float() = %v, more than the tag bits lost", f, got)
	}
}

func TestReferenceAlignment(t *testing.T) {
	v := ReferenceValue(Address(0x1000))
	if v.Tag() != TagReference || v.Address() != Address(0x1000) {
		t.Errorf("reference round trip gave tag %d address %#x", v.Tag(), uintptr(v.Address()))
	}
	defer func() {
		if recover() == nil {
			t.Error("unaligned reference did not panic")
		}
	}()
	ReferenceValue(Address(0x1001))
}
