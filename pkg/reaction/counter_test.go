package reaction

import "testing"

func TestOptimisticCountInvariant(t *testing.T) {
	for _, server := range []bool{false, true} {
		for _, local := range []bool{false, true} {
			for _, count := range []int64{0, 1, 7, 1000} {
				s := State{ServerValue: server, LocalValue: local}
				got := OptimisticCount(count, s)
				if got < count-1 || got > count+1 {
					t.Errorf("OptimisticCount(%d, %+v) = %d, outside one unit", count, s, got)
				}
				if (got == count) != (server == local) {
					t.Errorf("OptimisticCount(%d, %+v) = %d, equality with server count must track agreement", count, s, got)
				}
			}
		}
	}
}

func TestDeltaNeverAccumulates(t *testing.T) {
	s := State{ServerValue: false}
	for i := 0; i < 9; i++ {
		s.LocalValue = !s.LocalValue
		if d := Delta(s); d < -1 || d > 1 {
			t.Fatalf("toggle %d produced delta %d", i, d)
		}
	}
	// Odd number of toggles from unliked leaves a pending like.
	if Delta(s) != 1 {
		t.Errorf("Delta = %d, want 1", Delta(s))
	}
}
