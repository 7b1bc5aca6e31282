package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("unexpected %v %v", got, ok)
	}
}

func TestParseDefaults(t *testing.T) {
	if ParseIntDefault("x", 7) != 7 || ParseIntDefault(" 3 ", 7) != 3 {
		t.Fatalf("int parsing")
	}
	if ParseFloatDefault("NaN", 1.5) != 1.5 || ParseFloatDefault("2.25", 0) != 2.25 {
		t.Fatalf("float parsing")
	}
	if !ParseBoolDefault("yes", false) || ParseBoolDefault("0", true) || !ParseBoolDefault("", true) {
		t.Fatalf("bool parsing")
	}
}
