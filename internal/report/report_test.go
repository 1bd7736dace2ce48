package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wavebench/internal/benchmark"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okRecord(lib, lang, format, file, test string, mean float64) benchmark.Record {
	return benchmark.Record{
		Library: lib, Language: lang, Format: format, File: file, Test: test, Scale: "small",
		FileSizeBytes: 1_000_000, TimesS: []float64{mean}, MeanS: mean, MemoryKB: 100, Status: benchmark.StatusOK,
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryFullParse, CategoryOf("full_parse"))
	assert.Equal(t, CategoryFullParse, CategoryOf("Full-Parse-Streaming"))
	assert.Equal(t, CategorySignalList, CategoryOf("signal_list"))
	assert.Equal(t, CategoryTimeRange, CategoryOf("time_range_read"))
	assert.Equal(t, CategoryValueQuery, CategoryOf("value_query_window"))
	assert.Equal(t, CategoryPipeline, CategoryOf("pipeline"))
	assert.Equal(t, Category(""), CategoryOf("setup"))
}

func TestAggregate_RankingOrdersUnmeasuredLast(t *testing.T) {
	records := []benchmark.Record{
		okRecord("A", "Python", "VCD", "a.vcd", "full_parse", 2.0),
		okRecord("B", "Rust", "VCD", "a.vcd", "full_parse", 1.0),
		okRecord("C", "Python", "VCD", "a.vcd", "full_parse", 0),
	}
	s := Aggregate(records, "small")

	require.Len(t, s.Ranking, 3)
	assert.Equal(t, "B (Rust)", s.Ranking[0].Key)
	assert.Equal(t, "A (Python)", s.Ranking[1].Key)
	assert.Equal(t, "C (Python)", s.Ranking[2].Key)
	assert.Equal(t, 1.0, s.Ranking[0].Slowdown)
	assert.Equal(t, 2.0, s.Ranking[1].Slowdown)
	assert.Zero(t, s.Ranking[2].Slowdown)
	assert.Equal(t, []int{1, 2, 3}, []int{s.Ranking[0].Rank, s.Ranking[1].Rank, s.Ranking[2].Rank})

	groups := s.GroupsOf(CategoryFullParse)
	require.Len(t, groups, 1)
	var order []string
	for _, e := range groups[0].Entries {
		order = append(order, e.Library)
	}
	assert.Equal(t, []string{"B", "A", "C"}, order)
	assert.True(t, groups[0].Chart)
	assert.Equal(t, strings.Repeat("#", 15), groups[0].Entries[0].Bar)
	assert.Equal(t, strings.Repeat("#", 30), groups[0].Entries[1].Bar)
	assert.Empty(t, groups[0].Entries[2].Bar)
}

func TestAggregate_RankingAveragesAcrossFiles(t *testing.T) {
	records := []benchmark.Record{
		okRecord("wellen", "Rust", "VCD", "a.vcd", "full_parse", 1.0),
		okRecord("wellen", "Rust", "FST", "b.fst", "full_parse", 3.0),
		okRecord("vcdvcd", "Python", "VCD", "a.vcd", "full_parse", 3.0),
		okRecord("wellen", "Rust", "VCD", "a.vcd", "signal_list", 0.1),
	}
	s := Aggregate(records, "small")
	require.Len(t, s.Ranking, 2)
	assert.Equal(t, "vcdvcd (Python)", s.Ranking[1].Key)
	assert.Equal(t, 2.0, s.Ranking[0].AvgS)
	assert.Equal(t, 2, s.Ranking[0].Files)
	assert.Equal(t, 1.5, s.Ranking[1].Slowdown)
}

func TestAggregate_SortTieBreak(t *testing.T) {
	records := []benchmark.Record{
		okRecord("zeta", "Rust", "VCD", "a.vcd", "full_parse", 1.0),
		okRecord("alpha", "Rust", "VCD", "a.vcd", "full_parse", 1.0),
	}
	g := Aggregate(records, "small").GroupsOf(CategoryFullParse)[0]
	assert.Equal(t, "alpha", g.Entries[0].Library)
}

func TestAggregate_GroupsAndFailures(t *testing.T) {
	failed := benchmark.Record{Library: "pylibfst", Test: "setup", Status: benchmark.StatusError, Error: "entry point not found: /x"}
	records := []benchmark.Record{
		okRecord("wellen", "Rust", "VCD", "b.vcd", "signal_list", 0.1),
		okRecord("wellen", "Rust", "VCD", "a.vcd", "signal_list", 0.1),
		okRecord("wellen", "Rust", "VCD", "", "signal_list", 0.1),
		okRecord("solo", "Rust", "FST", "a.fst", "pipeline", 0.1),
		failed,
	}
	s := Aggregate(records, "small")

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []benchmark.Record{failed}, s.Failures)

	sig := s.GroupsOf(CategorySignalList)
	require.Len(t, sig, 2, "records without a file are not grouped")
	assert.Equal(t, "a.vcd", sig[0].File)
	assert.Equal(t, "b.vcd", sig[1].File)

	pipe := s.GroupsOf(CategoryPipeline)
	require.Len(t, pipe, 1)
	assert.False(t, pipe[0].Chart, "a single measured entry gets no chart")
	assert.InDelta(t, 9.537, pipe[0].Entries[0].Throughput, 0.001)

	assert.Equal(t, []string{"wellen"}, s.VCDLibraries)
	assert.Equal(t, []string{"solo"}, s.FSTLibraries)
}

func TestRender_Sections(t *testing.T) {
	records := []benchmark.Record{
		okRecord("A", "Python", "VCD", "a.vcd", "full_parse", 2.0),
		okRecord("B", "Rust", "VCD+FST", "a.vcd", "full_parse", 1.0),
		okRecord("B", "Rust", "VCD+FST", "a.vcd", "time_range", 0.01),
		{Library: "C", Test: "all", Status: benchmark.StatusTimeout, Error: "subprocess timed out after 300s | killed " + strings.Repeat("x", 100)},
	}
	out := RenderString(Aggregate(records, "small"), time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))

	for _, heading := range []string{
		"## 1. Full Parse Performance",
		"## 2. Signal List Retrieval Performance",
		"### Time Range Queries",
		"## 3. Value Query Performance",
		"## 4. Pipeline Performance",
		"## 5. Overall Ranking (by Full Parse Speed)",
		"## 6. Errors and Failures",
		"## 7. Summary",
	} {
		assert.Contains(t, out, heading)
	}
	assert.Contains(t, out, "_Generated at 2026-10-19 12:00:00_")
	assert.Contains(t, out, "### File: `a.vcd` (976.6KB)")
	assert.Contains(t, out, "| B | Rust | VCD+FST | 1.000s | 1.0 MB/s | 100KB |")
	assert.Contains(t, out, "  B               |###############| 1.000s")
	assert.Contains(t, out, "| 1 | B (Rust) (fastest) | 1.000s | 1 | 1.0x |")
	assert.Contains(t, out, "- A (Python): 2.0x slower")
	assert.Contains(t, out, "#### File: `a.vcd`")
	assert.Contains(t, out, "No pipeline benchmarks recorded.")
	assert.Contains(t, out, "| C | all | timeout | subprocess timed out after 300s \\| killed xxx")
	assert.NotContains(t, out, strings.Repeat("x", 70), "error text is truncated")
	assert.Contains(t, out, "- **VCD libraries tested**: A, B")
	assert.Contains(t, out, "- **FST libraries tested**: B")
}

func TestRender_NoFailures(t *testing.T) {
	out := RenderString(Aggregate([]benchmark.Record{okRecord("A", "Go", "VCD", "a.vcd", "full_parse", 1)}, "small"), time.Now())
	assert.Contains(t, out, "No failures recorded.")
}

func TestRender_DeterministicApartFromTimestamp(t *testing.T) {
	records := []benchmark.Record{
		okRecord("A", "Python", "VCD", "a.vcd", "full_parse", 2.0),
		okRecord("B", "Rust", "FST", "b.fst", "value_query", 0.5),
		okRecord("C", "Rust", "FST", "b.fst", "value_query", 0.25),
		okRecord("D", "Go", "VCD", "a.vcd", "pipeline", 0.3),
		{Library: "E", Test: "setup", Status: benchmark.StatusError, Error: "not found"},
	}
	strip := func(s string) string {
		var kept []string
		for _, line := range strings.Split(s, "\n") {
			if !strings.HasPrefix(line, TimestampPrefix) {
				kept = append(kept, line)
			}
		}
		return strings.Join(kept, "\n")
	}

	first := RenderString(Aggregate(records, "small"), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	reversed := make([]benchmark.Record, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	second := RenderString(Aggregate(records, "small"), time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.NotEqual(t, first, second)
	assert.Equal(t, strip(first), strip(second))
	assert.Equal(t, 1, strings.Count(first, TimestampPrefix))
	assert.Equal(t, strip(first), strip(RenderString(Aggregate(reversed, "small"), time.Now())),
		"comparison content does not depend on record order apart from the failures list")
}

func TestRender_MultiScaleHeadings(t *testing.T) {
	small := okRecord("A", "Go", "VCD", "a.vcd", "full_parse", 1)
	medium := okRecord("A", "Go", "VCD", "a.vcd", "full_parse", 4)
	medium.Scale = "medium"
	out := RenderString(Aggregate([]benchmark.Record{medium, small}, "small+medium"), time.Now())

	smallAt := strings.Index(out, "### File: `a.vcd` (976.6KB) [small]")
	mediumAt := strings.Index(out, "### File: `a.vcd` (976.6KB) [medium]")
	require.NotEqual(t, -1, smallAt)
	require.NotEqual(t, -1, mediumAt)
	assert.Less(t, smallAt, mediumAt)
}

func TestWriteCharts(t *testing.T) {
	records := []benchmark.Record{
		okRecord("A", "Python", "VCD", "a.vcd", "full_parse", 2.0),
		okRecord("B", "Rust", "VCD", "a.vcd", "full_parse", 1.0),
		okRecord("B", "Rust", "VCD", "a.vcd", "signal_list", 1.0),
	}
	dir := filepath.Join(t.TempDir(), "charts")
	paths, err := WriteCharts(dir, Aggregate(records, "small"))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "full_parse_a_vcd_small.png"), paths[0])
	info, err := os.Stat(paths[0])
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderTerminal(t *testing.T) {
	out, err := RenderTerminal("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}
