// Package report aggregates canonical records into comparison groups and a
// global ranking, and renders them as a markdown report.
package report

import (
	"math"
	"sort"
	"strings"

	"wavebench/internal/benchmark"
)

// Category is a family of tests compared against each other.
type Category string

const (
	CategoryFullParse  Category = "full_parse"
	CategorySignalList Category = "signal_list"
	CategoryTimeRange  Category = "time_range"
	CategoryValueQuery Category = "value_query"
	CategoryPipeline   Category = "pipeline"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryFullParse,
	CategorySignalList,
	CategoryTimeRange,
	CategoryValueQuery,
	CategoryPipeline,
}

// CategoryOf returns the category whose identifier appears in the test
// name, or "" when none does.
func CategoryOf(test string) Category {
	t := strings.ReplaceAll(strings.ToLower(test), "-", "_")
	for _, c := range Categories {
		if strings.Contains(t, string(c)) {
			return c
		}
	}
	return ""
}

// Entry is one library's measurement in a group.
type Entry struct {
	benchmark.Record
	// Throughput in MB/s, 0 when unavailable.
	Throughput float64
	// Bar is the text bar of this entry, empty when the group has no chart.
	Bar string
}

// Group is one comparison table: one category on one input file.
type Group struct {
	Category Category
	File     string
	Scale    string
	FileSize int64
	Entries  []Entry
	// Chart reports whether at least two entries have a positive mean.
	Chart bool
}

// RankEntry is one line of the overall ranking.
type RankEntry struct {
	Rank int
	// Key is "library (language)".
	Key     string
	Library string
	AvgS    float64
	Files   int
	// Slowdown is AvgS relative to the fastest, rounded to one decimal;
	// 0 when the library has no positive measurement.
	Slowdown float64
}

// Summary is everything the report shows.
type Summary struct {
	Scale    string
	Total    int
	Passed   int
	Failed   int
	Groups   []Group
	Ranking  []RankEntry
	Failures []benchmark.Record
	// MultiScale is set when records come from more than one scale.
	MultiScale   bool
	VCDLibraries []string
	FSTLibraries []string
}

// GroupsOf returns the groups of one category, in report order.
func (s Summary) GroupsOf(c Category) []Group {
	var out []Group
	for _, g := range s.Groups {
		if g.Category == c {
			out = append(out, g)
		}
	}
	return out
}

// Aggregate builds the summary of records. It is a pure function of its
// input: the same records always give the same summary.
func Aggregate(records []benchmark.Record, scale string) Summary {
	s := Summary{Scale: scale, Total: len(records)}

	var ok []benchmark.Record
	scales := map[string]bool{}
	vcd, fst := map[string]bool{}, map[string]bool{}
	for _, r := range records {
		if !r.OK() {
			s.Failures = append(s.Failures, r)
			continue
		}
		ok = append(ok, r)
		scales[r.Scale] = true
		f := strings.ToLower(r.Format)
		if strings.Contains(f, "vcd") {
			vcd[r.Library] = true
		}
		if strings.Contains(f, "fst") {
			fst[r.Library] = true
		}
	}
	s.Passed = len(ok)
	s.Failed = len(s.Failures)
	s.MultiScale = len(scales) > 1
	s.VCDLibraries = sortedKeys(vcd)
	s.FSTLibraries = sortedKeys(fst)

	for _, c := range Categories {
		s.Groups = append(s.Groups, groupCategory(c, ok)...)
	}
	s.Ranking = rank(ok)
	return s
}

type groupKey struct {
	file  string
	scale string
}

func groupCategory(c Category, ok []benchmark.Record) []Group {
	byFile := map[groupKey][]benchmark.Record{}
	for _, r := range ok {
		if r.File == "" || CategoryOf(r.Test) != c {
			continue
		}
		k := groupKey{r.File, r.Scale}
		byFile[k] = append(byFile[k], r)
	}

	keys := make([]groupKey, 0, len(byFile))
	for k := range byFile {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].file != keys[j].file {
			return keys[i].file < keys[j].file
		}
		if si, sj := scaleIndex(keys[i].scale), scaleIndex(keys[j].scale); si != sj {
			return si < sj
		}
		return keys[i].scale < keys[j].scale
	})

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		recs := byFile[k]
		sortByMean(recs)
		g := Group{Category: c, File: k.file, Scale: k.scale}
		measured := 0
		var slowest float64
		for _, r := range recs {
			g.FileSize = max(g.FileSize, r.FileSizeBytes)
			if r.MeanS > 0 {
				measured++
				slowest = max(slowest, r.MeanS)
			}
		}
		g.Chart = measured >= 2
		for _, r := range recs {
			e := Entry{Record: r, Throughput: Throughput(r.FileSizeBytes, r.MeanS)}
			if g.Chart {
				e.Bar = Bar(r.MeanS, slowest, BarWidth)
			}
			g.Entries = append(g.Entries, e)
		}
		groups = append(groups, g)
	}
	return groups
}

// sortByMean orders by ascending mean with unmeasured (non-positive) means
// last; ties fall back to library, language and format.
func sortByMean(recs []benchmark.Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if less, decided := compareMeans(a.MeanS, b.MeanS); decided {
			return less
		}
		if a.Library != b.Library {
			return a.Library < b.Library
		}
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Format < b.Format
	})
}

// compareMeans orders positive means ascending before non-positive ones.
func compareMeans(a, b float64) (less, decided bool) {
	ap, bp := a > 0, b > 0
	switch {
	case ap && bp && a != b:
		return a < b, true
	case ap != bp:
		return ap, true
	default:
		return false, false
	}
}

// rank averages each library's positive full-parse means across files.
func rank(ok []benchmark.Record) []RankEntry {
	type acc struct {
		library string
		sum     float64
		n       int
	}
	libs := map[string]*acc{}
	for _, r := range ok {
		if CategoryOf(r.Test) != CategoryFullParse {
			continue
		}
		key := r.Library + " (" + r.Language + ")"
		a, found := libs[key]
		if !found {
			a = &acc{library: r.Library}
			libs[key] = a
		}
		if r.MeanS > 0 {
			a.sum += r.MeanS
			a.n++
		}
	}

	ranking := make([]RankEntry, 0, len(libs))
	for key, a := range libs {
		e := RankEntry{Key: key, Library: a.library, Files: a.n}
		if a.n > 0 {
			e.AvgS = a.sum / float64(a.n)
		}
		ranking = append(ranking, e)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if less, decided := compareMeans(ranking[i].AvgS, ranking[j].AvgS); decided {
			return less
		}
		return ranking[i].Key < ranking[j].Key
	})

	for i := range ranking {
		ranking[i].Rank = i + 1
		if fastest := ranking[0].AvgS; fastest > 0 && ranking[i].AvgS > 0 {
			ranking[i].Slowdown = math.Round(ranking[i].AvgS/fastest*10) / 10
		}
	}
	return ranking
}

func scaleIndex(scale string) int {
	for i, s := range benchmark.Scales {
		if s == scale {
			return i
		}
	}
	return len(benchmark.Scales)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
