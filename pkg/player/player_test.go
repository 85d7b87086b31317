package player

import (
	"testing"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

func TestIterateRadiusOne(t *testing.T) {
	rd := RenderDistance{Horizontal: 1, Vertical: 1}
	center := chunk.Pos{X: 10, Y: -2, Z: 5}
	got := rd.Iterate(center)

	if len(got) != 27 || rd.Len() != 27 {
		t.Fatalf("got %d positions (Len %d), want 27", len(got), rd.Len())
	}
	if got[0] != center {
		t.Errorf("first = %v, want center %v", got[0], center)
	}

	seen := chunk.Set{}
	var last int64
	for i, pos := range got {
		if !seen.Add(pos) {
			t.Fatalf("duplicate position %v", pos)
		}
		if !rd.Visible(center, pos) {
			t.Errorf("iterated position %v not visible", pos)
		}
		d := pos.SquaredDistance(center)
		if i > 0 && d < last {
			t.Fatalf("position %d (%v) at distance %d after distance %d", i, pos, d, last)
		}
		last = d
	}
	if d := got[26].SquaredDistance(center); d != 3 {
		t.Errorf("last distance = %d, want a corner at 3", d)
	}
}

func TestIterateTieOrder(t *testing.T) {
	rd := RenderDistance{Horizontal: 1, Vertical: 1}
	got := rd.Iterate(chunk.Pos{})
	want := []chunk.Pos{
		{},
		{X: -1}, {Y: -1}, {Z: -1}, {Z: 1}, {Y: 1}, {X: 1},
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("position %d = %v, want %v", i, got[i], w)
		}
	}
}

func TestIterateAnisotropic(t *testing.T) {
	rd := RenderDistance{Horizontal: 2, Vertical: 0}
	got := rd.Iterate(chunk.Pos{})
	if len(got) != 25 {
		t.Fatalf("got %d positions, want 25", len(got))
	}
	for _, pos := range got {
		if pos.Y != 0 {
			t.Errorf("position %v outside vertical radius 0", pos)
		}
	}
}

func TestVisible(t *testing.T) {
	rd := RenderDistance{Horizontal: 3, Vertical: 1}
	center := chunk.Pos{X: -5, Y: 0, Z: 5}
	tests := []struct {
		pos  chunk.Pos
		want bool
	}{
		{center, true},
		{chunk.Pos{X: -2, Y: 1, Z: 8}, true},
		{chunk.Pos{X: -8, Y: -1, Z: 2}, true},
		{chunk.Pos{X: -1, Y: 0, Z: 5}, false},
		{chunk.Pos{X: -5, Y: 2, Z: 5}, false},
		{chunk.Pos{X: -5, Y: 0, Z: 1}, false},
	}
	for _, tt := range tests {
		if got := rd.Visible(center, tt.pos); got != tt.want {
			t.Errorf("Visible(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}
