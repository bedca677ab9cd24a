package scoring

import (
	"testing"

	"github.com/rankforge/leaderboard/internal/model"
)

func TestClampPageDefaultsAndBounds(t *testing.T) {
	cases := []struct {
		name               string
		limit, offset      int
		wantLimit, wantOff int
	}{
		{"zero limit defaults to 10", 0, 0, 10, 0},
		{"negative limit defaults to 10", -5, 0, 10, 0},
		{"over max limit clamps to 100", 500, 0, 100, 0},
		{"negative offset clamps to 0", 20, -3, 20, 0},
		{"already in range is untouched", 25, 50, 25, 50},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotLimit, gotOffset := clampPage(c.limit, c.offset)
			if gotLimit != c.wantLimit || gotOffset != c.wantOff {
				t.Fatalf("clampPage(%d, %d) = (%d, %d), want (%d, %d)", c.limit, c.offset, gotLimit, gotOffset, c.wantLimit, c.wantOff)
			}
		})
	}
}

func TestBetterScoreDescendingPrefersHigher(t *testing.T) {
	if !betterScore(100, 50, model.SortDesc) {
		t.Fatal("in desc order a higher candidate should be better")
	}
	if betterScore(50, 100, model.SortDesc) {
		t.Fatal("in desc order a lower candidate should not be better")
	}
	if betterScore(50, 50, model.SortDesc) {
		t.Fatal("an equal score should not count as an improvement")
	}
}

func TestBetterScoreAscendingPrefersLower(t *testing.T) {
	if !betterScore(10, 20, model.SortAsc) {
		t.Fatal("in asc order a lower candidate should be better")
	}
	if betterScore(20, 10, model.SortAsc) {
		t.Fatal("in asc order a higher candidate should not be better")
	}
	if betterScore(10, 10, model.SortAsc) {
		t.Fatal("an equal score should not count as an improvement")
	}
}
