package util

import "testing"

func TestParseFloatComma(t *testing.T) {
	for in, want := range map[string]float64{"1.5": 1.5, "1,5": 1.5, " -0,25 ": -0.25, "10": 10} {
		got, err := ParseFloat(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v err %v", in, got, err)
		}
	}
	if _, err := ParseFloat("abc"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLeverage(t *testing.T) {
	if FormatLeverage(100) != "1:100" {
		t.Fatalf("unexpected format")
	}
	for _, in := range []string{"1:100", "100", " 1:100 "} {
		n, err := ParseLeverage(in)
		if err != nil || n != 100 {
			t.Fatalf("%q: got %d err %v", in, n, err)
		}
	}
	if _, err := ParseLeverage("1:x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("", 7) != 7 || ParseIntDefault("x", 7) != 7 || ParseIntDefault("3", 7) != 3 {
		t.Fatalf("unexpected ParseIntDefault result")
	}
}

func TestFormatFloat(t *testing.T) {
	if FormatFloat(0.1) != "0.1" || FormatFloat(-3) != "-3" || FormatFloat(1e-7) != "0.0000001" {
		t.Fatalf("unexpected float format")
	}
}
