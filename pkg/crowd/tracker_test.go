package crowd

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

func TestTracker_JoinLeave(t *testing.T) {
	tr := NewTracker(4)

	id := tr.Join("", vecmath.V(1, 1, 0))
	if id == "" {
		t.Fatal("expected generated id")
	}
	tr.Join("bob", vecmath.V(2, 2, 0))

	s := tr.Snapshot()
	if s.Headcount() != 2 || !floatEquals(s.Density, 0.5) {
		t.Errorf("Snapshot = %+v", s)
	}

	if !tr.Leave("bob") {
		t.Error("Leave(bob) should report true")
	}
	if tr.Leave("bob") {
		t.Error("second Leave should report false")
	}
	if tr.Count() != 1 {
		t.Errorf("Count = %d, want 1", tr.Count())
	}
}

func TestTracker_DensityOverrideAndClamp(t *testing.T) {
	tr := NewTracker(2)
	for _, id := range []string{"a", "b", "c"} {
		tr.Join(id, vecmath.V(0, 0, 0))
	}
	if s := tr.Snapshot(); s.Density != 1 {
		t.Errorf("over-capacity density = %v, want clamped 1", s.Density)
	}

	if err := tr.SetDensity(0.25); err != nil {
		t.Fatal(err)
	}
	if s := tr.Snapshot(); s.Density != 0.25 {
		t.Errorf("override density = %v", s.Density)
	}
	if err := tr.SetDensity(-1); !errors.Is(err, ErrValidation) {
		t.Errorf("negative override err = %v", err)
	}

	tr.ClearDensity()
	if s := tr.Snapshot(); s.Density != 1 {
		t.Errorf("density after clear = %v", s.Density)
	}
}

func TestTracker_SnapshotDeterministicOrder(t *testing.T) {
	a := NewTracker(10)
	a.Join("x", vecmath.V(1, 0, 0))
	a.Join("y", vecmath.V(2, 0, 0))

	b := NewTracker(10)
	b.Join("y", vecmath.V(2, 0, 0))
	b.Join("x", vecmath.V(1, 0, 0))

	if a.Snapshot().Hash() != b.Snapshot().Hash() {
		t.Error("join order should not affect the snapshot hash")
	}
}

func TestTracker_OnChange(t *testing.T) {
	tr := NewTracker(10)
	var got []int
	tr.OnChange(func(s State) {
		got = append(got, s.Headcount())
	})

	tr.Join("a", vecmath.V(0, 0, 0))
	tr.Move("a", vecmath.V(1, 0, 0))
	tr.Join("b", vecmath.V(0, 0, 0))
	tr.Leave("a")
	if err := tr.SetMovement(0.5); err != nil {
		t.Fatal(err)
	}

	want := []int{1, 1, 2, 1, 1}
	if len(got) != len(want) {
		t.Fatalf("callbacks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("callback %d headcount = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := NewTracker(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := tr.Join("", vecmath.V(float64(i), float64(j), 0))
				_ = tr.Snapshot()
				tr.Leave(id)
			}
		}(i)
	}
	wg.Wait()
	if tr.Count() != 0 {
		t.Errorf("Count = %d after balanced join/leave", tr.Count())
	}
}

func TestTracker_SetMovement(t *testing.T) {
	tr := NewTracker(10)
	if err := tr.SetMovement(math.NaN()); !errors.Is(err, ErrValidation) {
		t.Errorf("NaN movement err = %v", err)
	}
	if err := tr.SetMovement(math.Inf(1)); !errors.Is(err, ErrValidation) {
		t.Errorf("Inf movement err = %v", err)
	}
	if err := tr.SetMovement(3); err != nil || tr.Movement() != 1 {
		t.Errorf("SetMovement(3) = %v, movement %v, want clamped 1", err, tr.Movement())
	}
	if err := tr.SetMovement(0.4); err != nil {
		t.Fatal(err)
	}
	tr.Join("a", vecmath.V(0, 0, 0))
	if s := tr.Snapshot(); s.Movement != 0.4 {
		t.Errorf("movement after join = %v, want 0.4", s.Movement)
	}
}

func TestTracker_LastDeliveredSnapshotIsCurrent(t *testing.T) {
	tr := NewTracker(1000)
	var (
		mu   sync.Mutex
		last = -1
	)
	tr.OnChange(func(s State) {
		mu.Lock()
		last = s.Headcount()
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				tr.Join(fmt.Sprintf("p-%d-%d", i, j), vecmath.V(float64(i), float64(j), 0))
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last != tr.Count() || last != 512 {
		t.Errorf("last delivered headcount = %d, tracker count = %d", last, tr.Count())
	}
}
