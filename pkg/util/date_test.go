package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-03-03T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2025, 3, 3, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 3, 3, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2025, 3, 3, 10, 7, 31, 0, time.UTC)
	to := time.Date(2025, 3, 3, 11, 3, 2, 0, time.UTC)
	af, at := AlignFromTo(from, to, "15m")
	if af.Minute() != 0 || at.Minute() != 0 {
		t.Fatalf("expected 15m boundaries, got %v %v", af, at)
	}
}

func TestStreamSymbol(t *testing.T) {
	if got := StreamSymbol(" BTCUSDT "); got != "btcusdt" {
		t.Fatalf("unexpected stream symbol %q", got)
	}
}
