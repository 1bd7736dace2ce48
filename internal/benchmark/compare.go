package benchmark

import (
	"fmt"
	"sort"
)

// Comparison holds the change of one measurement between two batches.
type Comparison struct {
	Key       string
	MeanDiff  float64 // Percentage change
	MemDiff   float64 // Percentage change
	Prev      Record
	Curr      Record
	HasPrev   bool
	Regressed bool
	Improved  bool
}

// RecordKey identifies a measurement across batches.
func RecordKey(r Record) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", r.Library, r.Language, r.Test, r.File, r.Scale)
}

// Compare matches the ok records of curr against prev. A positive MeanDiff
// larger than threshold (percent) marks a regression.
func Compare(prev, curr []Record, threshold float64) []Comparison {
	prevMap := make(map[string]Record)
	for _, r := range prev {
		if r.OK() {
			prevMap[RecordKey(r)] = r
		}
	}

	var comparisons []Comparison
	for _, c := range curr {
		if !c.OK() {
			continue
		}
		comp := Comparison{Key: RecordKey(c), Curr: c}
		if p, ok := prevMap[comp.Key]; ok {
			comp.Prev = p
			comp.HasPrev = true
			if p.MeanS > 0 {
				comp.MeanDiff = (c.MeanS - p.MeanS) / p.MeanS * 100
			}
			if p.MemoryKB > 0 {
				comp.MemDiff = float64(c.MemoryKB-p.MemoryKB) / float64(p.MemoryKB) * 100
			}
			comp.Regressed = comp.MeanDiff > threshold
			comp.Improved = comp.MeanDiff < -threshold
		}
		comparisons = append(comparisons, comp)
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].Key < comparisons[j].Key
	})
	return comparisons
}

// Verdict returns the short status label printed for a comparison.
func (c Comparison) Verdict() string {
	switch {
	case !c.HasPrev:
		return "NEW"
	case c.Regressed:
		return "FAIL"
	case c.Improved:
		return "IMPR"
	default:
		return "PASS"
	}
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %+.2f%% mean", c.Key, c.MeanDiff)
}
