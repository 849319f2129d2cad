package observ

import (
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Millisecond)
	order := tm.Begin("order")
	tm.End(order, "2 modules")
	lib := tm.Begin("typecheck:lib")
	tm.End(lib, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 1 || r.Phases[0].Note != "2 modules" {
		t.Fatalf("unexpected first phase %+v", r.Phases[0])
	}
	if r.TotalMS != 2 {
		t.Fatalf("total = %v", r.TotalMS)
	}
}

func TestSummaryAlignsNames(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(time.Millisecond)
	tm.End(tm.Begin("order"), "")
	tm.End(tm.Begin("typecheck:main"), "error")
	lines := strings.Split(strings.TrimRight(tm.Summary(), "\n"), "\n")
	if len(lines) != 4 || lines[0] != "timings:" {
		t.Fatalf("summary:\n%s", tm.Summary())
	}
	if got := strings.Index(lines[1], "1.00"); got != strings.Index(lines[2], "1.00") {
		t.Fatalf("durations not aligned:\n%s", tm.Summary())
	}
	if !strings.HasSuffix(lines[2], "// error") || !strings.Contains(lines[3], "2.00 ms") {
		t.Fatalf("summary:\n%s", tm.Summary())
	}
}

func TestEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); r.Phases != nil || r.TotalMS != 0 {
		t.Fatalf("empty timer report = %+v", r)
	}
}
