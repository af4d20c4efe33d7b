// Package extract reads the semantic location history of a Takeout archive
// and returns the timeline records that fall inside a date interval.
package extract

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/interval"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/logger"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/timeline"
)

// Path of the semantic history below a Takeout root.
var semanticSubPath = filepath.Join("Location History", "Semantic Location History")

// DefaultMaxParallel bounds concurrent month file reads when Options leaves it unset.
const DefaultMaxParallel = 8

// MonthNames are the upper-case month names used in partition file names,
// indexed by time.Month-1.
var MonthNames = [12]string{
	"JANUARY", "FEBRUARY", "MARCH", "APRIL", "MAY", "JUNE",
	"JULY", "AUGUST", "SEPTEMBER", "OCTOBER", "NOVEMBER", "DECEMBER",
}

// Options tunes extraction.
type Options struct {
	MaxParallel int
	Diagnostics *logger.Diagnostics
}

func (o Options) limit() int {
	if o.MaxParallel < 1 {
		return DefaultMaxParallel
	}
	return o.MaxParallel
}

// Partition is one <year>/<year>_<MONTH>.json file.
type Partition struct {
	Year  int
	Month time.Month
	Path  string
}

// FileName returns the partition's file name, e.g. 2020_JANUARY.json.
func FileName(year int, month time.Month) string {
	return fmt.Sprintf("%d_%s.json", year, MonthNames[month-1])
}

// SemanticDir returns the "Semantic Location History" directory for root.
// root may be the Takeout root or the semantic directory itself.
func SemanticDir(root string) string {
	candidate := filepath.Join(root, semanticSubPath)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return root
}

// Years lists year directories in dir that overlap iv, ascending.
// Entries whose names are not integers are ignored.
func Years(dir string, iv interval.Interval) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewArchiveUnreadable(dir, err)
	}

	first, last := iv.Years()
	var years []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		year, err := strconv.Atoi(e.Name())
		if err != nil || strconv.Itoa(year) != e.Name() {
			continue
		}
		if year >= first && year <= last {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}

// Partitions enumerates the month files that can hold records in iv, in
// (year, month) order. Records near a month boundary are sometimes filed
// under the neighbouring month, so the window reaches one month past iv on
// each side, across year directories. Files are not checked for existence.
func Partitions(dir string, iv interval.Interval) ([]Partition, error) {
	window := searchWindow(iv)
	years, err := Years(dir, window)
	if err != nil {
		return nil, err
	}

	var parts []Partition
	for _, year := range years {
		from, to, ok := window.MonthRange(year)
		if !ok {
			continue
		}
		for m := from; m <= to; m++ {
			parts = append(parts, Partition{
				Year:  year,
				Month: m,
				Path:  filepath.Join(dir, strconv.Itoa(year), FileName(year, m)),
			})
		}
	}
	return parts, nil
}

// searchWindow widens iv to whole UTC months plus one month on either side.
func searchWindow(iv interval.Interval) interval.Interval {
	start, end := iv.Start.UTC(), iv.End.UTC()
	return interval.Interval{
		Start: time.Date(start.Year(), start.Month()-1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(end.Year(), end.Month()+1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Extract loads every candidate partition under root concurrently and
// returns the records whose own start and end both lie in iv. Missing
// partitions are skipped; any other load failure aborts the run.
func Extract(ctx context.Context, root string, iv interval.Interval, opts Options) ([]timeline.Record, error) {
	parts, err := Partitions(SemanticDir(root), iv)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.Path
	}

	batches, err := loadAll(ctx, paths, true, opts)
	if err != nil {
		return nil, err
	}
	return filterBatches(batches, iv, opts.Diagnostics)
}

// LoadFiles loads explicitly named month files concurrently, merges them in
// argument order and filters them like Extract. Every file must exist.
func LoadFiles(ctx context.Context, paths []string, iv interval.Interval, opts Options) ([]timeline.Record, error) {
	batches, err := loadAll(ctx, paths, false, opts)
	if err != nil {
		return nil, err
	}
	return filterBatches(batches, iv, opts.Diagnostics)
}

// Filter keeps records whose start and end both fall within iv. Records
// with no known variant are reported and dropped. A malformed timestamp is
// fatal.
func Filter(records []timeline.Record, iv interval.Interval, diag *logger.Diagnostics) ([]timeline.Record, error) {
	return filterBatches([]batch{{records: records}}, iv, diag)
}

// batch is the result slot of one file load.
type batch struct {
	path    string
	records []timeline.Record
}

func loadAll(ctx context.Context, paths []string, tolerateMissing bool, opts Options) ([]batch, error) {
	batches := make([]batch, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.limit())

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc, err := readDocument(path)
			if err != nil {
				if tolerateMissing && stderrors.Is(err, fs.ErrNotExist) {
					opts.Diagnostics.Report(logger.KindMissingPartition, "partition not found, skipping", logrus.Fields{"path": path})
					batches[i] = batch{path: path}
					return nil
				}
				return errors.NewPartitionRead(path, err)
			}

			batches[i] = batch{path: path, records: doc.TimelineObjects}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func readDocument(path string) (*timeline.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc timeline.Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &doc, nil
}

func filterBatches(batches []batch, iv interval.Interval, diag *logger.Diagnostics) ([]timeline.Record, error) {
	var out []timeline.Record
	for _, b := range batches {
		for i, rec := range b.records {
			if rec.Kind() == timeline.KindUnknown {
				diag.Report(logger.KindUnknownRecord, "unknown object, expected placeVisit or activitySegment; ignoring",
					logrus.Fields{"path": b.path, "index": i})
				continue
			}

			start, end, err := rec.Duration().Bounds()
			if err != nil {
				if b.path != "" {
					return nil, fmt.Errorf("%s record %d: %w", b.path, i, err)
				}
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if iv.Contains(start) && iv.Contains(end) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}
