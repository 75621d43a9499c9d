package dataset

import (
	"testing"
)

func makeDataset(t *testing.T, n int, posEvery int) *Dataset {
	t.Helper()
	target := make([]float64, n)
	age := make([]float64, n)
	for i := range target {
		if i%posEvery == 0 {
			target[i] = 1
		}
		age[i] = float64(20 + i%60)
	}
	d, err := New(testTarget(target),
		ColumnData{Column: Column{Name: "age", Kind: KindNumeric}, Numeric: age},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestSplitPartitionInvariants(t *testing.T) {
	d := makeDataset(t, 1000, 3)

	for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		train, holdout, err := Split(d, p, 42)
		if err != nil {
			t.Fatalf("Split(p=%v): %v", p, err)
		}
		if train.Len()+holdout.Len() != d.Len() {
			t.Errorf("p=%v: |train|+|holdout| = %d, want %d", p, train.Len()+holdout.Len(), d.Len())
		}
	}

	train, holdout, err := Split(d, 0.75, 42)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if train.Len() != 750 || holdout.Len() != 250 {
		t.Errorf("sizes = (%d, %d), want (750, 250)", train.Len(), holdout.Len())
	}
}

func TestSplitReproducibleAndDisjoint(t *testing.T) {
	d := makeDataset(t, 200, 4)

	train1, hold1, err := Split(d, 0.7, 7)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	train2, _, err := Split(d, 0.7, 7)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	a1, _ := train1.Numeric("age")
	a2, _ := train2.Numeric("age")
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("same seed produced different training sets at row %d", i)
		}
	}

	// Disjointness: multisets of ages in train+holdout must equal the
	// original multiset exactly.
	count := func(vals []float64) map[float64]int {
		m := make(map[float64]int)
		for _, v := range vals {
			m[v]++
		}
		return m
	}
	orig, _ := d.Numeric("age")
	ha, _ := hold1.Numeric("age")
	got := count(a1)
	for v, n := range count(ha) {
		got[v] += n
	}
	want := count(orig)
	for v, n := range want {
		if got[v] != n {
			t.Errorf("value %v appears %d times in union, want %d", v, got[v], n)
		}
	}

	// Different seed should produce a different permutation.
	train3, _, err := Split(d, 0.7, 8)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	a3, _ := train3.Numeric("age")
	same := true
	for i := range a1 {
		if a1[i] != a3[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical training sets")
	}
}

func TestSplitRejectsDegenerateInput(t *testing.T) {
	d := makeDataset(t, 10, 2)
	for _, p := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := Split(d, p, 1); err == nil {
			t.Errorf("Split(p=%v) should fail", p)
		}
	}
	if _, _, err := Split(nil, 0.5, 1); err == nil {
		t.Error("Split(nil) should fail")
	}
}

func TestKFoldValidationPartitionsTraining(t *testing.T) {
	d := makeDataset(t, 103, 3)

	for _, k := range []int{2, 5, 10} {
		folds, err := KFold{K: k, Seed: 11}.Split(d)
		if err != nil {
			t.Fatalf("KFold(k=%d): %v", k, err)
		}
		if len(folds) != k {
			t.Fatalf("got %d folds, want %d", len(folds), k)
		}

		validated := make([]int, d.Len())
		for _, fold := range folds {
			if len(fold.Train)+len(fold.Val) != d.Len() {
				t.Errorf("k=%d: |train|+|val| = %d, want %d", k, len(fold.Train)+len(fold.Val), d.Len())
			}
			for _, idx := range fold.Val {
				validated[idx]++
			}
			inTrain := make(map[int]bool, len(fold.Train))
			for _, idx := range fold.Train {
				inTrain[idx] = true
			}
			for _, idx := range fold.Val {
				if inTrain[idx] {
					t.Errorf("k=%d: index %d in both train and val", k, idx)
				}
			}
		}
		for idx, n := range validated {
			if n != 1 {
				t.Errorf("k=%d: record %d validated %d times, want exactly once", k, idx, n)
			}
		}

		// Approximately equal fold sizes: max-min <= 1.
		minSize, maxSize := d.Len(), 0
		for _, fold := range folds {
			if len(fold.Val) < minSize {
				minSize = len(fold.Val)
			}
			if len(fold.Val) > maxSize {
				maxSize = len(fold.Val)
			}
		}
		if maxSize-minSize > 1 {
			t.Errorf("k=%d: fold sizes range from %d to %d", k, minSize, maxSize)
		}
	}
}

func TestStratifiedKFoldKeepsClassBalance(t *testing.T) {
	d := makeDataset(t, 200, 4) // 25% positive

	folds, err := KFold{K: 5, Stratified: true, Seed: 3}.Split(d)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	target := d.Target().Values
	for i, fold := range folds {
		pos := 0
		for _, idx := range fold.Val {
			if target[idx] == 1 {
				pos++
			}
		}
		if pos != 10 { // 40 validation rows, 25% positive
			t.Errorf("fold %d: %d positives in validation, want 10", i, pos)
		}
	}
}

func TestKFoldRejectsBadK(t *testing.T) {
	d := makeDataset(t, 10, 2)
	if _, err := (KFold{K: 1, Seed: 1}).Split(d); err == nil {
		t.Error("k=1 should fail")
	}
	if _, err := (KFold{K: 11, Seed: 1}).Split(d); err == nil {
		t.Error("k > n should fail")
	}
}
