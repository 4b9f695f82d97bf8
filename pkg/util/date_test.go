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
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeTesterDate(t *testing.T) {
	want := time.Date(2017, 6, 14, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2017.06.14", "2017-06-14"} {
		got, ok := ParseTime(s)
		if !ok || !got.Equal(want) {
			t.Fatalf("%s: got %v ok=%v", s, got, ok)
		}
	}
	if FormatTesterDate(want) != "2017.06.14" {
		t.Fatalf("unexpected format %s", FormatTesterDate(want))
	}
}

func TestParseTimeRejectsText(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
	if _, ok := ParseTime("  "); ok {
		t.Fatalf("expected failure on blank input")
	}
}
