package model

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"valid", Params{Plate: "A0001", CurrentCharge: 50, TotalCharge: 100, DesiredPercentage: 20}, true},
		{"full", Params{Plate: "A", CurrentCharge: 100, TotalCharge: 100, DesiredPercentage: 100}, true},
		{"zero capacity", Params{Plate: "A", CurrentCharge: 0, TotalCharge: 0, DesiredPercentage: 0}, true},
		{"empty plate", Params{CurrentCharge: 1, TotalCharge: 2}, false},
		{"long plate", Params{Plate: strings.Repeat("X", MaxPlateLength+1), TotalCharge: 1}, false},
		{"negative current", Params{Plate: "A", CurrentCharge: -1, TotalCharge: 100, DesiredPercentage: 50}, false},
		{"negative total", Params{Plate: "A", CurrentCharge: 0, TotalCharge: -1, DesiredPercentage: 50}, false},
		{"over capacity", Params{Plate: "A", CurrentCharge: 100, TotalCharge: 10, DesiredPercentage: 50}, false},
		{"percentage low", Params{Plate: "A", CurrentCharge: 50, TotalCharge: 100, DesiredPercentage: -1}, false},
		{"percentage high", Params{Plate: "A", CurrentCharge: 50, TotalCharge: 100, DesiredPercentage: 105}, false},
	}
	for _, c := range cases {
		err := c.p.Validate()
		if (err == nil) != c.ok {
			t.Errorf("%s: unexpected result %v", c.name, err)
		}
	}
}

func TestNextStatus(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		from  Status
		event string
		want  Status
		err   bool
	}{
		{"", EventPark, StatusOccupied, false},
		{StatusNew, EventPark, StatusOccupied, false},
		{StatusOccupied, EventPark, StatusOccupied, false},
		{StatusRetired, EventPark, StatusOccupied, false},
		{StatusOccupied, EventRetire, StatusRetired, false},
		{StatusRetired, EventRetire, StatusRetired, true},
		{StatusNew, EventRetire, StatusNew, true},
	}
	for _, c := range cases {
		got, err := Next(ctx, c.from, c.event)
		if c.err {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s/%s: expected invalid transition, got %v", c.from, c.event, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s/%s: %v", c.from, c.event, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s/%s: got %s want %s", c.from, c.event, got, c.want)
		}
	}
}

func TestRecordPercentage(t *testing.T) {
	r := Record{Params: Params{CurrentCharge: 25, TotalCharge: 200}}
	if r.Percentage() != 12.5 {
		t.Fatalf("expected 12.5 got %v", r.Percentage())
	}
	if (Record{}).Percentage() != 0 {
		t.Fatalf("zero capacity should report 0")
	}
}
