package training

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Split holds sample indices for the train and test partitions
type Split struct {
	Train      []int
	Test       []int
	Stratified bool
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x6a09e667f3bcc909))
}

// testCount returns how many of n samples go to the test partition
func testCount(n int, testSize float64) int {
	k := int(math.Ceil(testSize * float64(n)))
	if k < 1 {
		k = 1
	}
	if k >= n {
		k = n - 1
	}
	return k
}

// TrainTestSplit partitions sample indices. When every class has at least two
// samples the split is stratified so each class keeps its share in both
// partitions; otherwise it falls back to a plain shuffled split.
func TrainTestSplit(labels []int, testSize float64, seed uint64) (Split, error) {
	n := len(labels)
	if n < 2 {
		return Split{}, fmt.Errorf("need at least 2 samples to split, got %d", n)
	}
	if testSize <= 0 || testSize >= 1 {
		return Split{}, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}

	if split, ok := stratifiedSplit(labels, testSize, seed); ok {
		return split, nil
	}

	rng := newRand(seed)
	perm := rng.Perm(n)
	k := testCount(n, testSize)
	test := append([]int(nil), perm[:k]...)
	train := append([]int(nil), perm[k:]...)
	sort.Ints(test)
	sort.Ints(train)
	return Split{Train: train, Test: test}, nil
}

func stratifiedSplit(labels []int, testSize float64, seed uint64) (Split, bool) {
	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, members := range byClass {
		if len(members) < 2 {
			return Split{}, false
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	k := testCount(len(labels), testSize)
	if k < len(classes) || len(labels)-k < len(classes) {
		return Split{}, false
	}

	// Largest remainder allocation of the test budget across classes, at
	// least one test and one train sample per class.
	alloc := make(map[int]int, len(classes))
	type remainder struct {
		class int
		frac  float64
	}
	var rems []remainder
	assigned := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(k) / float64(len(labels))
		whole := int(math.Floor(exact))
		if whole < 1 {
			whole = 1
		}
		if whole > len(byClass[c])-1 {
			whole = len(byClass[c]) - 1
		}
		alloc[c] = whole
		assigned += whole
		rems = append(rems, remainder{class: c, frac: exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for assigned < k {
		progressed := false
		for _, r := range rems {
			if assigned == k {
				break
			}
			if alloc[r.class] < len(byClass[r.class])-1 {
				alloc[r.class]++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	rng := newRand(seed)
	var split Split
	split.Stratified = true
	for _, c := range classes {
		members := byClass[c]
		perm := rng.Perm(len(members))
		for j, p := range perm {
			if j < alloc[c] {
				split.Test = append(split.Test, members[p])
			} else {
				split.Train = append(split.Train, members[p])
			}
		}
	}
	sort.Ints(split.Test)
	sort.Ints(split.Train)
	return split, true
}
