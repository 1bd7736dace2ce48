// Package normalize converts the raw payloads of a combined document into
// canonical benchmark records.
//
// Payload shapes are recognized structurally by a closed, ordered list of
// variants. Each variant owns one adapter; supporting a new shape means adding
// a variant, not changing an existing one. Elements no variant recognizes are
// dropped.
package normalize

import (
	"encoding/json"
	"log/slog"
	"math"
	"path/filepath"

	"wavebench/internal/benchmark"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Default languages of the two collections of a combined document.
const (
	IsolatedLanguage = "Python"
	NativeLanguage   = "Rust"
)

// Normalizer maps payloads to records. It holds no state between calls, so
// normalizing the same document twice yields identical records.
type Normalizer struct {
	// Fs resolves file sizes for records that only carry a path.
	Fs     afero.Fs
	Logger *slog.Logger
}

func New(fs afero.Fs) *Normalizer {
	return &Normalizer{Fs: fs, Logger: slog.Default()}
}

// source carries the defaults an element inherits from where it was found.
type source struct {
	language string
	scale    string
	library  string
	format   string
}

// Variant is one recognized payload shape.
type Variant struct {
	Name  string
	Match func(el gjson.Result) bool
	Adapt func(n *Normalizer, el gjson.Result, src source) []benchmark.Record
}

// Variants is consulted in order; the first match wins.
var Variants = []Variant{
	{Name: "library_wrapper", Match: isLibraryWrapper, Adapt: adaptLibraryWrapper},
	{Name: "operation_record", Match: isOperationRecord, Adapt: adaptOperationRecord},
}

// Normalize converts every payload of doc, isolated collection first.
func (n *Normalizer) Normalize(doc benchmark.CombinedDocument) []benchmark.Record {
	records := []benchmark.Record{}
	records = append(records, n.collection(doc.Isolated, source{language: IsolatedLanguage, scale: doc.Scale})...)
	records = append(records, n.collection(doc.Native, source{language: NativeLanguage, scale: doc.Scale})...)
	return records
}

// NormalizeAll normalizes several documents, keeping their order.
func (n *Normalizer) NormalizeAll(docs []benchmark.CombinedDocument) []benchmark.Record {
	records := []benchmark.Record{}
	for _, doc := range docs {
		records = append(records, n.Normalize(doc)...)
	}
	return records
}

func (n *Normalizer) collection(items []json.RawMessage, src source) []benchmark.Record {
	var records []benchmark.Record
	for i, raw := range items {
		el := gjson.ParseBytes(raw)
		recs, ok := n.element(el, src)
		if !ok {
			n.logger().Debug("dropping unrecognized payload element", "index", i, "language", src.language)
			continue
		}
		records = append(records, recs...)
	}
	return records
}

func (n *Normalizer) element(el gjson.Result, src source) ([]benchmark.Record, bool) {
	for _, v := range Variants {
		if v.Match(el) {
			return v.Adapt(n, el, src), true
		}
	}
	return nil, false
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// fileSize returns the size of path if it still exists.
func (n *Normalizer) fileSize(path string) int64 {
	if path == "" || n.Fs == nil {
		return 0
	}
	info, err := n.Fs.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

func isLibraryWrapper(el gjson.Result) bool {
	return el.IsObject() && el.Get("results").IsArray()
}

func isOperationRecord(el gjson.Result) bool {
	return el.IsObject() && el.Get("operation").Exists()
}

// adaptLibraryWrapper maps a library/format wrapper around per-test entries.
// Entries that are themselves operation records go through that adapter.
func adaptLibraryWrapper(n *Normalizer, el gjson.Result, src source) []benchmark.Record {
	inner := src.inherit(el)
	var records []benchmark.Record
	for _, item := range el.Get("results").Array() {
		switch {
		case isOperationRecord(item):
			records = append(records, adaptOperationRecord(n, item, inner)...)
		case item.IsObject():
			records = append(records, testEntry(item, inner))
		}
	}
	return records
}

func testEntry(item gjson.Result, src source) benchmark.Record {
	scale := item.Get("scale").String()
	if scale == "" {
		scale = src.scale
	}
	return benchmark.Record{
		Library:       src.library,
		Language:      src.language,
		Format:        src.format,
		File:          baseName(item.Get("file").String()),
		Test:          item.Get("test").String(),
		Scale:         scale,
		FileSizeBytes: item.Get("file_size_bytes").Int(),
		TimesS:        floats(item.Get("times_s")),
		MeanS:         item.Get("mean_s").Float(),
		StdevS:        item.Get("stdev_s").Float(),
		MemoryKB:      kilobytes(item.Get("memory_kb")),
		Status:        status(item.Get("status")),
		Error:         item.Get("error").String(),
	}.Seal()
}

// adaptOperationRecord maps a flat per-operation record. Its file field is a
// path; the size is looked up on disk.
func adaptOperationRecord(n *Normalizer, el gjson.Result, src source) []benchmark.Record {
	src = src.inherit(el)
	path := el.Get("file").String()
	return []benchmark.Record{benchmark.Record{
		Library:       src.library,
		Language:      src.language,
		Format:        src.format,
		File:          baseName(path),
		Test:          el.Get("operation").String(),
		Scale:         src.scale,
		FileSizeBytes: n.fileSize(path),
		TimesS:        floats(el.Get("times")),
		MeanS:         el.Get("mean").Float(),
		StdevS:        el.Get("stdev").Float(),
		MemoryKB:      kilobytes(el.Get("peak_memory_kb")),
		Status:        status(el.Get("status")),
		Error:         el.Get("error").String(),
	}.Seal()}
}

// inherit overrides the defaults with whatever el declares itself.
func (s source) inherit(el gjson.Result) source {
	if v := el.Get("library").String(); v != "" {
		s.library = v
	}
	if v := el.Get("format").String(); v != "" {
		s.format = v
	}
	if v := el.Get("language").String(); v != "" {
		s.language = v
	}
	if v := el.Get("scale").String(); v != "" {
		s.scale = v
	}
	return s
}

func floats(v gjson.Result) []float64 {
	out := []float64{}
	for _, x := range v.Array() {
		out = append(out, x.Float())
	}
	return out
}

func kilobytes(v gjson.Result) int64 {
	return int64(math.Round(v.Float()))
}

func status(v gjson.Result) benchmark.Status {
	if s := v.String(); s != "" {
		return benchmark.Status(s)
	}
	return benchmark.StatusUnknown
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
