package charging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestAccrue(t *testing.T) {
	cases := []struct {
		name    string
		current int
		total   int
		elapsed time.Duration
		want    int
	}{
		{"no time", 50, 100, 0, 50},
		{"ten seconds", 50, 100, 10 * time.Second, 60},
		{"sub second ignored", 50, 100, 900 * time.Millisecond, 50},
		{"clamped", 50, 100, 80 * time.Second, 100},
		{"long session", 0, 1000, 48 * time.Hour, 1000},
		{"floor", 0, 1000, 3 * time.Second, 30},
		{"odd capacity", 1, 7, 50 * time.Second, 4},
		{"skew", 50, 100, -time.Minute, 50},
	}
	for _, c := range cases {
		got := Accrue(c.current, c.total, t0, t0.Add(c.elapsed))
		assert.Equal(t, c.want, got, c.name)
	}
}

func TestAccrueMonotonicAndClamped(t *testing.T) {
	for _, total := range []int{1, 3, 100, 997, 40000} {
		for _, current := range []int{0, total / 3, total} {
			prev := -1
			for e := 0; e <= 150; e++ {
				got := Accrue(current, total, t0, t0.Add(time.Duration(e)*time.Second))
				if got < prev {
					t.Fatalf("accrual decreased at e=%d (total=%d current=%d)", e, total, current)
				}
				if got > total {
					t.Fatalf("accrual %d above capacity %d", got, total)
				}
				prev = got
			}
		}
	}
}

func TestTimeToCompletion(t *testing.T) {
	cases := []struct {
		current, total, desired int
		want                    time.Duration
	}{
		{50, 100, 20, 0},
		{50, 100, 50, 0},
		{50, 100, 90, 40 * time.Second},
		{0, 1000, 50, 50 * time.Second},
		{1, 3, 34, time.Second},
		{100, 100, 100, 0},
		{0, 0, 50, 0},
	}
	for _, c := range cases {
		got := TimeToCompletion(c.current, c.total, c.desired)
		assert.Equalf(t, c.want, got, "%d/%d -> %d%%", c.current, c.total, c.desired)
	}
}

func TestTimeToCompletionZeroIffTargetMet(t *testing.T) {
	for total := 1; total <= 60; total++ {
		for current := 0; current <= total; current++ {
			for desired := 0; desired <= 100; desired++ {
				met := 100*current >= desired*total
				zero := TimeToCompletion(current, total, desired) == 0
				if met != zero {
					t.Fatalf("current=%d total=%d desired=%d: met=%v zero=%v", current, total, desired, met, zero)
				}
			}
		}
	}
}

func TestCompletionTimeReachesTarget(t *testing.T) {
	// Capacities divisible by 100 accrue whole units every second.
	for _, c := range []struct{ current, total, desired int }{
		{50, 100, 90}, {0, 1000, 50}, {120, 400, 85}, {0, 200, 1},
	} {
		done := CompletionTime(c.current, c.total, c.desired, t0)
		charge := Accrue(c.current, c.total, t0, done)
		if 100*charge < c.desired*c.total {
			t.Fatalf("%+v: charge %d at predicted completion below target", c, charge)
		}
	}
}
