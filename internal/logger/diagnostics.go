package logger

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind identifies a recoverable anomaly.
type Kind string

const (
	KindMissingPartition       Kind = "missing_partition"
	KindUnknownRecord          Kind = "unknown_record"
	KindBothVariants           Kind = "both_variants"
	KindVisitMissingLocation   Kind = "visit_missing_location"
	KindSegmentMissingEndpoint Kind = "segment_missing_endpoint"
)

// Diagnostic is one recorded anomaly.
type Diagnostic struct {
	Kind    Kind
	Message string
	Fields  logrus.Fields
}

// Diagnostics collects anomalies that are absorbed instead of aborting the run.
// Every report is also logged. A nil *Diagnostics is valid and only discards.
type Diagnostics struct {
	log *logrus.Entry

	mu      sync.Mutex
	entries []Diagnostic
}

// NewDiagnostics returns a recorder that logs through entry (may be nil).
func NewDiagnostics(entry *logrus.Entry) *Diagnostics {
	if entry == nil {
		entry = Discard()
	}
	return &Diagnostics{log: entry}
}

// Report records an anomaly. Missing partitions are expected in sparse
// archives and log at debug; everything else logs at warn.
func (d *Diagnostics) Report(kind Kind, msg string, fields logrus.Fields) {
	if d == nil {
		return
	}

	d.mu.Lock()
	d.entries = append(d.entries, Diagnostic{Kind: kind, Message: msg, Fields: fields})
	d.mu.Unlock()

	entry := d.log.WithField("kind", string(kind)).WithFields(fields)
	if kind == KindMissingPartition {
		entry.Debug(msg)
		return
	}
	entry.Warn(msg)
}

// Entries returns a copy of everything reported so far.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Count returns how many anomalies of kind were reported.
func (d *Diagnostics) Count(kind Kind) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Summary returns per-kind counts, sorted by kind.
func (d *Diagnostics) Summary() []KindCount {
	counts := map[Kind]int{}
	for _, e := range d.Entries() {
		counts[e.Kind]++
	}
	out := make([]KindCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount pairs an anomaly kind with its occurrence count.
type KindCount struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}
