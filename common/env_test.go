package common

import (
	"testing"
	"time"
)

func TestGetEnvMissingReturnsDefault(t *testing.T) {
	got, err := GetEnv("AUTOTRADER_TEST_MISSING", 42)
	if err != nil || got != 42 {
		t.Errorf("expected default 42, got %d (err %v)", got, err)
	}
}

func TestGetEnvParsesTypes(t *testing.T) {
	t.Setenv("AUTOTRADER_TEST_STR", "hello")
	t.Setenv("AUTOTRADER_TEST_INT", "7")
	t.Setenv("AUTOTRADER_TEST_FLOAT", "2500.5")
	t.Setenv("AUTOTRADER_TEST_BOOL", "true")
	t.Setenv("AUTOTRADER_TEST_DUR", "1500ms")

	if v, _ := GetEnv("AUTOTRADER_TEST_STR", ""); v != "hello" {
		t.Errorf("string: got %q", v)
	}
	if v, _ := GetEnv("AUTOTRADER_TEST_INT", 0); v != 7 {
		t.Errorf("int: got %d", v)
	}
	if v, _ := GetEnv("AUTOTRADER_TEST_FLOAT", 0.0); v != 2500.5 {
		t.Errorf("float64: got %f", v)
	}
	if v, _ := GetEnv("AUTOTRADER_TEST_BOOL", false); !v {
		t.Error("bool: got false")
	}
	if v, _ := GetEnv("AUTOTRADER_TEST_DUR", time.Second); v != 1500*time.Millisecond {
		t.Errorf("duration: got %v", v)
	}
}

func TestGetEnvMalformedFallsBack(t *testing.T) {
	t.Setenv("AUTOTRADER_TEST_BAD", "not-a-number")

	got, err := GetEnv("AUTOTRADER_TEST_BAD", 3)
	if err == nil {
		t.Error("expected a parse error")
	}
	if got != 3 {
		t.Errorf("expected default on parse error, got %d", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("AUTOTRADER_TEST_LIST", "AAPL, MSFT ,,TSLA")

	got := GetEnvList("AUTOTRADER_TEST_LIST", nil)
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}

	if fallback := GetEnvList("AUTOTRADER_TEST_LIST_MISSING", []string{"SPY"}); len(fallback) != 1 || fallback[0] != "SPY" {
		t.Errorf("expected default list, got %v", fallback)
	}
}
