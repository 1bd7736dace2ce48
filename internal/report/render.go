package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"wavebench/internal/benchmark"
)

// Title is the first line of every report.
const Title = "# VCD/FST Library Benchmark Report"

// TimestampPrefix starts the only line of a report that depends on the
// wall clock.
const TimestampPrefix = "_Generated at "

// ErrorWidth is the number of characters of error text shown per failure.
const ErrorWidth = 80

type section struct {
	heading string
	columns []string
	row     func(e Entry) []string
	bars    bool
	sizes   bool
	level   string
	empty   string
}

var (
	fullParseSection = section{
		heading: "## 1. Full Parse Performance",
		columns: []string{"Library", "Language", "Format", "Time", "Throughput", "Memory"},
		row: func(e Entry) []string {
			return []string{e.Library, e.Language, e.Format, FormatTime(e.MeanS), FormatThroughput(e.Throughput), FormatMemory(e.MemoryKB)}
		},
		bars: true, sizes: true, level: "###",
		empty: "No full parse benchmarks recorded.",
	}
	signalListSection = section{
		heading: "## 2. Signal List Retrieval Performance",
		columns: []string{"Library", "Language", "Time", "Stdev"},
		row: func(e Entry) []string {
			return []string{e.Library, e.Language, FormatTime(e.MeanS), FormatTime(e.StdevS)}
		},
		level: "###",
		empty: "No signal list benchmarks recorded.",
	}
	timeRangeSection = section{
		heading: "### Time Range Queries",
		columns: []string{"Library", "Language", "Format", "Time", "Stdev"},
		row: func(e Entry) []string {
			return []string{e.Library, e.Language, e.Format, FormatTime(e.MeanS), FormatTime(e.StdevS)}
		},
		level: "####",
		empty: "No time range benchmarks recorded.",
	}
	valueQuerySection = section{
		heading: "## 3. Value Query Performance",
		columns: []string{"Library", "Language", "Format", "Time", "Stdev", "Memory"},
		row: func(e Entry) []string {
			return []string{e.Library, e.Language, e.Format, FormatTime(e.MeanS), FormatTime(e.StdevS), FormatMemory(e.MemoryKB)}
		},
		bars: true, sizes: true, level: "###",
		empty: "No value query benchmarks recorded.",
	}
	pipelineSection = section{
		heading: "## 4. Pipeline Performance (Load + Signal List + Time Range + Value Query)",
		columns: []string{"Library", "Language", "Format", "Pipeline Time", "Throughput", "Memory"},
		row: func(e Entry) []string {
			return []string{e.Library, e.Language, e.Format, FormatTime(e.MeanS), FormatThroughput(e.Throughput), FormatMemory(e.MemoryKB)}
		},
		bars: true, sizes: true, level: "###",
		empty: "No pipeline benchmarks recorded.",
	}
)

// Render writes the markdown report of s. Apart from the timestamp line the
// output depends only on s.
func Render(w io.Writer, s Summary, generated time.Time) error {
	var b strings.Builder
	b.WriteString(Title + "\n\n")
	fmt.Fprintf(&b, "%s%s_\n\n", TimestampPrefix, generated.Format(benchmark.TimestampLayout))
	fmt.Fprintf(&b, "- **Scale**: %s\n", s.Scale)
	fmt.Fprintf(&b, "- **Total benchmarks**: %d\n", s.Total)
	fmt.Fprintf(&b, "- **Passed**: %d, **Failed/Skipped**: %d\n\n", s.Passed, s.Failed)

	writeSection(&b, fullParseSection, s.GroupsOf(CategoryFullParse), s.MultiScale)
	writeSection(&b, signalListSection, s.GroupsOf(CategorySignalList), s.MultiScale)
	writeSection(&b, timeRangeSection, s.GroupsOf(CategoryTimeRange), s.MultiScale)
	writeSection(&b, valueQuerySection, s.GroupsOf(CategoryValueQuery), s.MultiScale)
	writeSection(&b, pipelineSection, s.GroupsOf(CategoryPipeline), s.MultiScale)
	writeRanking(&b, s.Ranking)
	writeFailures(&b, s.Failures)
	writeSummary(&b, s)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderString is Render into a string.
func RenderString(s Summary, generated time.Time) string {
	var b strings.Builder
	_ = Render(&b, s, generated)
	return b.String()
}

func writeSection(b *strings.Builder, sec section, groups []Group, multiScale bool) {
	b.WriteString(sec.heading + "\n\n")
	if len(groups) == 0 {
		b.WriteString(sec.empty + "\n\n")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(b, "%s File: `%s`", sec.level, g.File)
		if sec.sizes {
			fmt.Fprintf(b, " (%s)", FormatSize(g.FileSize))
		}
		if multiScale && g.Scale != "" {
			fmt.Fprintf(b, " [%s]", g.Scale)
		}
		b.WriteString("\n\n")

		rows := make([][]string, 0, len(g.Entries))
		for _, e := range g.Entries {
			rows = append(rows, sec.row(e))
		}
		writeTable(b, sec.columns, rows)

		if sec.bars && g.Chart {
			b.WriteString("```\n")
			for _, e := range g.Entries {
				fmt.Fprintf(b, "  %-15s |%s| %s\n", e.Library, e.Bar, FormatTime(e.MeanS))
			}
			b.WriteString("```\n\n")
		}
	}
}

func writeRanking(b *strings.Builder, ranking []RankEntry) {
	b.WriteString("## 5. Overall Ranking (by Full Parse Speed)\n\n")
	if len(ranking) == 0 {
		b.WriteString("No full parse benchmarks recorded.\n\n")
		return
	}
	rows := make([][]string, 0, len(ranking))
	for _, r := range ranking {
		key := r.Key
		if r.Rank == 1 && r.AvgS > 0 {
			key += " (fastest)"
		}
		slowdown := "N/A"
		if r.Slowdown > 0 {
			slowdown = fmt.Sprintf("%.1fx", r.Slowdown)
		}
		rows = append(rows, []string{fmt.Sprint(r.Rank), key, FormatTime(r.AvgS), fmt.Sprint(r.Files), slowdown})
	}
	writeTable(b, []string{"Rank", "Library", "Avg Parse Time", "Files Tested", "Slowdown"}, rows)

	fastest := ranking[0]
	if len(ranking) < 2 || fastest.AvgS <= 0 {
		return
	}
	fmt.Fprintf(b, "**Fastest**: %s at %s average\n\n", fastest.Key, FormatTime(fastest.AvgS))
	for _, r := range ranking[1:] {
		if r.Slowdown > 0 {
			fmt.Fprintf(b, "- %s: %.1fx slower\n", r.Key, r.Slowdown)
		} else {
			fmt.Fprintf(b, "- %s: not measured\n", r.Key)
		}
	}
	b.WriteString("\n")
}

func writeFailures(b *strings.Builder, failures []benchmark.Record) {
	b.WriteString("## 6. Errors and Failures\n\n")
	if len(failures) == 0 {
		b.WriteString("No failures recorded.\n\n")
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, r := range failures {
		rows = append(rows, []string{r.Library, r.Test, string(r.Status), truncate(r.Error, ErrorWidth)})
	}
	writeTable(b, []string{"Library", "Test", "Status", "Error"}, rows)
}

func writeSummary(b *strings.Builder, s Summary) {
	b.WriteString("## 7. Summary\n\n")
	fmt.Fprintf(b, "- **VCD libraries tested**: %s\n", joinOrNone(s.VCDLibraries))
	fmt.Fprintf(b, "- **FST libraries tested**: %s\n", joinOrNone(s.FSTLibraries))
	fmt.Fprintf(b, "- **Scale**: %s\n\n", s.Scale)

	takeaways := keyTakeaways(s)
	if len(takeaways) == 0 {
		return
	}
	b.WriteString("### Key Takeaways\n\n")
	for _, t := range takeaways {
		b.WriteString("- " + t + "\n")
	}
	b.WriteString("\n")
}

// keyTakeaways derives short statements from the measurements.
func keyTakeaways(s Summary) []string {
	var out []string
	if len(s.Ranking) > 0 && s.Ranking[0].AvgS > 0 {
		out = append(out, fmt.Sprintf("Fastest full parse overall: %s (%s average)", s.Ranking[0].Key, FormatTime(s.Ranking[0].AvgS)))
	}
	for _, format := range []string{"VCD", "FST"} {
		if best, ok := fastestFor(s.GroupsOf(CategoryFullParse), strings.ToLower(format)); ok {
			out = append(out, fmt.Sprintf("Fastest %s parse: %s (%s) on `%s` at %s",
				format, best.Library, best.Language, best.File, FormatThroughput(best.Throughput)))
		}
	}
	if len(s.Failures) > 0 {
		out = append(out, fmt.Sprintf("%d measurement(s) failed; see section 6", len(s.Failures)))
	}
	return out
}

// fastestFor returns the entry with the highest throughput among entries
// whose format mentions format.
func fastestFor(groups []Group, format string) (Entry, bool) {
	var best Entry
	found := false
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.Throughput <= 0 || !strings.Contains(strings.ToLower(e.Format), format) {
				continue
			}
			if !found || e.Throughput > best.Throughput {
				best, found = e, true
			}
		}
	}
	return best, found
}

func writeTable(b *strings.Builder, columns []string, rows [][]string) {
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	seps := make([]string, len(columns))
	for i, c := range columns {
		seps[i] = strings.Repeat("-", len(c))
	}
	b.WriteString("|-" + strings.Join(seps, "-|-") + "-|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cell(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
