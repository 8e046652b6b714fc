package reconcile

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line string
		want model.Params
		err  error
	}{
		{"A0001,50,100,20", model.Params{Plate: "A0001", CurrentCharge: 50, TotalCharge: 100, DesiredPercentage: 20}, nil},
		{"A0001,50,100,20\r\n", model.Params{Plate: "A0001", CurrentCharge: 50, TotalCharge: 100, DesiredPercentage: 20}, nil},
		{" B 2 , 0 , 1000 , 50 ", model.Params{Plate: "B 2", CurrentCharge: 0, TotalCharge: 1000, DesiredPercentage: 50}, nil},
		{"A0001,50,100", model.Params{}, ErrMalformedLine},
		{"A0001,50,100,20,1", model.Params{}, ErrMalformedLine},
		{"A0001,fifty,100,20", model.Params{}, ErrMalformedLine},
		{"A0001,50,100,2.5", model.Params{}, ErrMalformedLine},
		{",50,100,20", model.Params{}, ErrMalformedLine},
		{"A0001,150,100,20", model.Params{}, ledger.ErrConstraintViolation},
		{"A0001,50,100,101", model.Params{}, ledger.ErrConstraintViolation},
		{"A0001,-1,100,20", model.Params{}, ledger.ErrConstraintViolation},
		{"A0001,0,0,20", model.Params{}, ledger.ErrConstraintViolation},
		{strings.Repeat("X", 21) + ",1,2,3", model.Params{}, ledger.ErrConstraintViolation},
	}
	for _, c := range cases {
		got, err := ParseLine(c.line)
		if c.err != nil {
			if !errors.Is(err, c.err) {
				t.Errorf("%q: expected %v got %v", c.line, c.err, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", c.line, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: got %+v want %+v", c.line, got, c.want)
		}
	}
}

func TestScanLines(t *testing.T) {
	input := "a,1\n" + strings.Repeat("x", 50) + "\nb,2\r\nlast"
	var lines []string
	var errs int
	err := scanLines(strings.NewReader(input), 20, func(line string, err error) {
		if err != nil {
			errs++
			return
		}
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if errs != 1 {
		t.Fatalf("expected one over-long line, got %d", errs)
	}
	want := []string{"a,1\n", "b,2\r\n", "last"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", lines, want)
	}
}

func TestScanLinesSmallBuffer(t *testing.T) {
	// Lines longer than the bufio buffer but within max are kept whole.
	long := strings.Repeat("y", 5000)
	var got []string
	err := scanLines(strings.NewReader(long+"\nz\n"), 6000, func(line string, err error) {
		if err != nil {
			t.Fatalf("unexpected line error %v", err)
		}
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0] != long+"\n" || got[1] != "z\n" {
		t.Fatalf("unexpected lines %d", len(got))
	}
}
