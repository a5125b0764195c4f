package budget

import "testing"

func TestBudgetFor_TierClassification(t *testing.T) {
	cases := []struct {
		name      string
		window    int
		wantTier  Tier
		wantTotal int
		wantTurns int
	}{
		{"cloud", 200_000, TierCloud, 12_000, 10},
		{"on-device", 16_385, TierOnDevice, 4_000, 5},
		{"tiny", 4_096, TierTiny, 2_000, 3},
		{"mid-lower-bound", 32_000, TierMid, 8_000, 7},
		{"mid-upper-bound", 127_999, TierMid, 8_000, 7},
		{"cloud-lower-bound", 128_000, TierCloud, 12_000, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BudgetFor(tc.window)
			if got.Tier != tc.wantTier {
				t.Fatalf("tier = %s, want %s", got.Tier, tc.wantTier)
			}
			if got.Total != tc.wantTotal {
				t.Fatalf("total = %d, want %d", got.Total, tc.wantTotal)
			}
			if got.TurnCount != tc.wantTurns {
				t.Fatalf("turns = %d, want %d", got.TurnCount, tc.wantTurns)
			}
		})
	}
}

func TestBudgetFor_SumInvariant(t *testing.T) {
	for _, w := range []int{0, 1, 4_096, 8_000, 16_385, 32_000, 127_999, 128_000, 1_000_000} {
		c := BudgetFor(w)
		sum := c.Immediate + c.Working + c.Episodic + c.Semantic
		if sum != c.Total {
			t.Fatalf("window %d: sum %d != total %d", w, sum, c.Total)
		}
	}
}

func TestBudgetFor_Monotonicity(t *testing.T) {
	windows := []int{0, 4_096, 8_000, 16_385, 32_000, 127_999, 128_000, 1_000_000}
	for i := 1; i < len(windows); i++ {
		lo := BudgetFor(windows[i-1])
		hi := BudgetFor(windows[i])
		if hi.Total < lo.Total {
			t.Fatalf("total not monotonic: %d -> %d", lo.Total, hi.Total)
		}
		if hi.Immediate < lo.Immediate || hi.Working < lo.Working || hi.Episodic < lo.Episodic || hi.Semantic < lo.Semantic {
			t.Fatalf("per-buffer budget not monotonic at window %d -> %d", windows[i-1], windows[i])
		}
		if hi.TurnCount < lo.TurnCount {
			t.Fatalf("turn count not monotonic: %d -> %d", lo.TurnCount, hi.TurnCount)
		}
	}
}

func TestBudgetFor_NegativeWindowTreatedAsZero(t *testing.T) {
	got := BudgetFor(-100)
	want := BudgetFor(0)
	if got != want {
		t.Fatalf("negative window should behave as zero: got %+v want %+v", got, want)
	}
}
