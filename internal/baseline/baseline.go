// Package baseline holds the reference operations of the natively built
// benchmark program: plain reads of a waveform file with no decoding. They
// bound from below what any parser can achieve on the same input.
package baseline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"wavebench/internal/benchmark"
	"wavebench/internal/sampler"

	"github.com/spf13/afero"
)

const (
	// Library is the name results are reported under.
	Library  = "baseline-read"
	Language = "Go"

	OpFullParse = "full_parse"
	OpPipeline  = "pipeline"
)

const chunkSize = 1 << 20

// Operations lists the operations run on every input, in output order.
var Operations = []string{OpFullParse, OpPipeline}

// FormatOf returns the waveform format of path as it appears in result
// lines ("vcd" or "fst"), or "" when the extension is not recognized.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcd":
		return "vcd"
	case ".fst":
		return "fst"
	default:
		return ""
	}
}

// FindInputs returns the waveform files directly inside dir, sorted.
func FindInputs(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && FormatOf(e.Name()) != "" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Reader builds operations over one file system.
type Reader struct {
	Fs afero.Fs
}

// Operation returns the named operation on path.
func (r Reader) Operation(name, path string) (sampler.Operation, error) {
	switch name {
	case OpFullParse:
		return func(ctx context.Context) error {
			_, err := r.readAll(ctx, path)
			return err
		}, nil
	case OpPipeline:
		return func(ctx context.Context) error {
			_, err := r.countChanges(ctx, path)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", name)
	}
}

// readAll reads the whole file in chunks and returns its size.
func (r Reader) readAll(ctx context.Context, path string) (int64, error) {
	f, err := r.Fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := f.Read(buf)
		total += int64(n)
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// countChanges scans the file line by line and counts timestamp markers,
// the cheapest pass that still touches every value change of a VCD file.
// Binary FST input yields whatever '#'-led lines it happens to contain.
func (r Reader) countChanges(ctx context.Context, path string) (int, error) {
	f, err := r.Fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), chunkSize)
	sc.Split(scanLinesLenient)
	count := 0
	for i := 0; sc.Scan(); i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}
		if line := sc.Bytes(); len(line) > 0 && line[0] == '#' {
			count++
		}
	}
	return count, sc.Err()
}

// scanLinesLenient is bufio.ScanLines that cuts overlong lines instead of
// failing on them.
func scanLinesLenient(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}
	if len(data) >= chunkSize {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Measure samples one operation on path and returns the result line the
// baseline program prints.
func (r Reader) Measure(ctx context.Context, s *sampler.Sampler, profile benchmark.ScaleProfile, name, path string) benchmark.OperationResult {
	res := benchmark.OperationResult{
		Library:   Library,
		Format:    FormatOf(path),
		Language:  Language,
		File:      path,
		Operation: name,
		Times:     []float64{},
	}
	op, err := r.Operation(name, path)
	if err != nil {
		return withError(res, benchmark.StatusError, err.Error())
	}
	out := s.RunTest(ctx, name, profile, op)
	if out.Status != benchmark.StatusOK {
		return withError(res, out.Status, out.Err)
	}
	res.Times = out.Times
	res.Mean = out.Mean
	res.Min = out.Min
	res.Max = out.Max
	res.Stdev = out.Stdev
	res.PeakMemoryKB = out.MemoryKB
	res.Status = benchmark.StatusOK
	return res
}

func withError(res benchmark.OperationResult, status benchmark.Status, msg string) benchmark.OperationResult {
	res.Status = status
	res.Error = &msg
	return res
}
