package normalize

import (
	"encoding/json"
	"testing"

	"wavebench/internal/benchmark"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/small/counter.vcd", make([]byte, 1000), 0644))
	return New(fs)
}

const wrapperPayload = `{
  "library": "vcdvcd",
  "format": "VCD",
  "results": [
    {"test": "full_parse", "scale": "small", "file": "counter.vcd", "file_size_bytes": 1000,
     "times_s": [0.5, 0.7], "mean_s": 0.6, "stdev_s": 0.1414, "memory_kb": 2048, "status": "ok", "error": ""},
    {"test": "value_query", "scale": "small", "file": "counter.vcd", "file_size_bytes": 1000,
     "times_s": [], "mean_s": 0, "stdev_s": 0, "memory_kb": 0, "status": "timeout", "error": "timed out after 60s"}
  ]
}`

const operationPayload = `{"library": "vcdvcd", "format": "VCD", "file": "/data/small/counter.vcd", "operation": "full_parse",
  "times": [0.5, 0.7], "mean": 0.6, "min": 0.5, "max": 0.7, "stdev": 0.1414, "peak_memory_kb": 2048, "status": "ok", "error": null}`

func TestNormalize_LibraryWrapper(t *testing.T) {
	n := newTestNormalizer(t)
	doc := benchmark.CombinedDocument{Scale: "small", Isolated: []json.RawMessage{raw(wrapperPayload)}}

	records := n.Normalize(doc)
	require.Len(t, records, 2)

	assert.Equal(t, benchmark.Record{
		Library: "vcdvcd", Language: "Python", Format: "VCD", File: "counter.vcd", Test: "full_parse",
		Scale: "small", FileSizeBytes: 1000, TimesS: []float64{0.5, 0.7}, MeanS: 0.6, StdevS: 0.1414,
		MemoryKB: 2048, Status: benchmark.StatusOK,
	}, records[0])

	assert.Equal(t, benchmark.StatusTimeout, records[1].Status)
	assert.Equal(t, "timed out after 60s", records[1].Error)
	assert.Empty(t, records[1].TimesS)
}

func TestNormalize_ShapesAreEquivalent(t *testing.T) {
	n := newTestNormalizer(t)
	a := n.Normalize(benchmark.CombinedDocument{Scale: "small", Isolated: []json.RawMessage{raw(wrapperPayload)}})
	b := n.Normalize(benchmark.CombinedDocument{Scale: "small", Native: []json.RawMessage{raw(operationPayload)}})
	require.NotEmpty(t, a)
	require.Len(t, b, 1)

	assert.Equal(t, "Rust", b[0].Language)
	b[0].Language = a[0].Language
	assert.Equal(t, a[0], b[0])
}

func TestNormalize_OperationRecordFileGone(t *testing.T) {
	n := newTestNormalizer(t)
	payload := `{"library":"wellen","format":"FST","file":"/tmp/deleted/big.fst","operation":"signal_list",
	  "times":[0.01],"mean":0.01,"stdev":0,"peak_memory_kb":10,"status":"ok","error":null}`

	records := n.Normalize(benchmark.CombinedDocument{Scale: "medium", Native: []json.RawMessage{raw(payload)}})
	require.Len(t, records, 1)
	assert.Zero(t, records[0].FileSizeBytes)
	assert.Equal(t, "big.fst", records[0].File)
	assert.Equal(t, "signal_list", records[0].Test)
	assert.Equal(t, "medium", records[0].Scale)
	assert.Empty(t, records[0].Error)
}

func TestNormalize_WrappedFailureInNativeCollection(t *testing.T) {
	n := newTestNormalizer(t)
	failure, err := json.Marshal(benchmark.FailurePayload("native", "mixed", "small", "build", benchmark.StatusError, "build failed (rc=2)"))
	require.NoError(t, err)

	records := n.Normalize(benchmark.CombinedDocument{Scale: "small", Native: []json.RawMessage{
		failure,
		raw(operationPayload),
	}})
	require.Len(t, records, 2)
	assert.Equal(t, "native", records[0].Library)
	assert.Equal(t, "Rust", records[0].Language)
	assert.Equal(t, "build", records[0].Test)
	assert.Equal(t, benchmark.StatusError, records[0].Status)
	assert.Equal(t, "build failed (rc=2)", records[0].Error)
	assert.Equal(t, "full_parse", records[1].Test)
}

func TestNormalize_DeclaredLanguageWins(t *testing.T) {
	n := newTestNormalizer(t)
	payload := `{"library":"baseline-read","language":"Go","format":"VCD","file":"/data/small/counter.vcd",
	  "operation":"full_parse","times":[0.1],"mean":0.1,"stdev":0,"peak_memory_kb":0,"status":"ok","error":null}`
	records := n.Normalize(benchmark.CombinedDocument{Native: []json.RawMessage{raw(payload)}})
	require.Len(t, records, 1)
	assert.Equal(t, "Go", records[0].Language)
	assert.Equal(t, int64(1000), records[0].FileSizeBytes)
}

func TestNormalize_MissingFieldsDefault(t *testing.T) {
	n := newTestNormalizer(t)
	records := n.Normalize(benchmark.CombinedDocument{Isolated: []json.RawMessage{raw(`{"results":[{"test":"full_parse"}]}`)}})
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, benchmark.StatusUnknown, r.Status)
	assert.Empty(t, r.Library)
	assert.Empty(t, r.File)
	assert.Zero(t, r.FileSizeBytes)
	assert.Zero(t, r.MeanS)
	assert.NotNil(t, r.TimesS)
}

func TestNormalize_UnrecognizedElementsDropped(t *testing.T) {
	n := newTestNormalizer(t)
	doc := benchmark.CombinedDocument{
		Isolated: []json.RawMessage{
			raw(`"just a string"`),
			raw(`{"library":"x","results":"not a list"}`),
			raw(`[1,2,3]`),
			raw(wrapperPayload),
			raw(`{"library":"y","results":[42, "str", {"test":"signal_list","status":"ok","times_s":[0.2],"mean_s":0.2}]}`),
		},
	}
	records := n.Normalize(doc)
	require.Len(t, records, 3)
	assert.Equal(t, "y", records[2].Library)
	assert.Equal(t, "signal_list", records[2].Test)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)
	doc := benchmark.CombinedDocument{
		Scale:    "small",
		Isolated: []json.RawMessage{raw(wrapperPayload)},
		Native:   []json.RawMessage{raw(operationPayload)},
	}
	assert.Equal(t, n.Normalize(doc), n.Normalize(doc))
}

func TestNormalize_RecordInvariants(t *testing.T) {
	n := newTestNormalizer(t)
	doc := benchmark.CombinedDocument{Isolated: []json.RawMessage{raw(`{"library":"z","results":[
	  {"test":"a","status":"error","mean_s":3.0,"stdev_s":1.0,"memory_kb":-5,"error":"boom"},
	  {"test":"b","status":"ok","mean_s":3.0,"times_s":[3.0],"error":"leftover"},
	  {"test":"c","status":"ok","mean_s":3.0}
	]}`)}}
	for _, r := range n.Normalize(doc) {
		assert.GreaterOrEqual(t, r.MemoryKB, int64(0), r.Test)
		if r.OK() {
			assert.Empty(t, r.Error, r.Test)
			assert.NotEmpty(t, r.TimesS, r.Test)
		} else {
			assert.Zero(t, r.MeanS, r.Test)
			assert.Zero(t, r.StdevS, r.Test)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	n := newTestNormalizer(t)
	docs := []benchmark.CombinedDocument{
		{Scale: "small", Isolated: []json.RawMessage{raw(wrapperPayload)}},
		{Scale: "medium", Native: []json.RawMessage{raw(operationPayload)}},
	}
	records := n.NormalizeAll(docs)
	require.Len(t, records, 3)
	assert.Equal(t, "medium", records[2].Scale)
}
