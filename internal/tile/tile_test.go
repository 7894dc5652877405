package tile

import "testing"

func TestIsOrigin(t *testing.T) {
	if !(Coordinate{X: 0, Y: 0}).IsOrigin() {
		t.Error("Expected (0,0) to be the origin")
	}
	if (Coordinate{X: 1, Y: 0}).IsOrigin() {
		t.Error("Expected (1,0) not to be the origin")
	}
	if (Coordinate{X: 0, Y: -1}).IsOrigin() {
		t.Error("Expected (0,-1) not to be the origin")
	}
}

func TestNeighborsOrder(t *testing.T) {
	// Order is load-bearing: prompt composition joins neighbor prompts in
	// left, right, up, down order.
	neighbors := Coordinate{X: 3, Y: -2}.Neighbors()

	expected := [4]Coordinate{
		{X: 2, Y: -2}, // left
		{X: 4, Y: -2}, // right
		{X: 3, Y: -3}, // up
		{X: 3, Y: -1}, // down
	}
	if neighbors != expected {
		t.Errorf("Expected neighbors %v, got %v", expected, neighbors)
	}
}

func TestModeFor(t *testing.T) {
	if got := ModeFor(Coordinate{}); got != ModeSeed {
		t.Errorf("Expected seed mode for origin, got %q", got)
	}
	if got := ModeFor(Coordinate{X: -1, Y: 5}); got != ModeContinuation {
		t.Errorf("Expected continuation mode for (-1,5), got %q", got)
	}
}

func TestValidWorldName(t *testing.T) {
	valid := []string{"forest", "default_world", "World-2", "a", "0_0"}
	for _, name := range valid {
		if !ValidWorldName(name) {
			t.Errorf("Expected %q to be a valid world name", name)
		}
	}

	invalid := []string{"", "two words", "slash/name", "dot.name", "../escape", "emoji🌲"}
	for _, name := range invalid {
		if ValidWorldName(name) {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}
