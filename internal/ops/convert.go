// Package ops implements the conversion pipeline on top of the extract,
// geo and output packages.
package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/config"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/extract"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/geo"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/interval"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/logger"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/output"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/timeline"
)

// ConvertInput contains per-run parameters of the Convert operation.
// Everything else comes from config.
type ConvertInput struct {
	// Files are explicit month files. When set, cfg.TakeoutDir is ignored.
	Files []string

	StartDate string // optional, default: Unix epoch
	EndDate   string // optional, default: Now

	Now      time.Time      // zero means time.Now()
	Location *time.Location // zone for dates without an offset, nil means time.Local
}

// ConvertOutput contains the result of the Convert operation.
type ConvertOutput struct {
	Interval    string             `json:"interval"`
	Records     int                `json:"records"`
	Stats       geo.Stats          `json:"stats"`
	Files       []string           `json:"files"`
	Diagnostics []logger.KindCount `json:"diagnostics,omitempty"`
}

// Convert reads location history, keeps the records inside the requested
// interval, converts them to features and writes the paged output set.
// Nothing is written unless every stage succeeded.
func Convert(ctx context.Context, cfg *config.Config, input ConvertInput, log *logrus.Entry) (*ConvertOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	// Validate metadata keys before touching the archive.
	keys, err := geo.ParseMetadataKeys(cfg.Metadata)
	if err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	iv, err := interval.Parse(input.StartDate, input.EndDate, now, input.Location)
	if err != nil {
		return nil, err
	}

	diag := logger.NewDiagnostics(log)
	extractOpts := extract.Options{MaxParallel: cfg.MaxParallelLoads, Diagnostics: diag}

	log.WithField("interval", iv.String()).Info("extracting timeline objects")

	var records []timeline.Record
	switch {
	case len(input.Files) > 0:
		records, err = extract.LoadFiles(ctx, input.Files, iv, extractOpts)
	case cfg.TakeoutDir != "":
		records, err = extract.Extract(ctx, cfg.TakeoutDir, iv, extractOpts)
	default:
		return nil, errors.NewInvalidRequest("a takeout directory or at least one month file is required")
	}
	if err != nil {
		return nil, err
	}

	fc, stats := geo.Transform(records, geo.Options{
		IncludeAllWaypoints: cfg.IncludeAllWaypoints,
		IncludeTimestamps:   cfg.IncludeTimestamps,
		Metadata:            keys,
		Diagnostics:         diag,
	})

	files, err := output.Build(fc, output.Options{
		BaseName:       output.SanitizeBaseName(cfg.OutputName),
		PageSize:       cfg.EntriesPerFile,
		GenerateKML:    cfg.GenerateKML,
		ExcludeGeoJSON: cfg.ExcludeGeoJSON,
		Pretty:         cfg.PrettyOutput,
	})
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("render output: %w", err))
	}

	var paths []string
	if len(files) > 0 {
		paths, err = output.WriteAll(ctx, cfg.OutputDir, files, cfg.MaxParallelWrites)
		if err != nil {
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"records":  len(records),
		"places":   stats.PlaceCount,
		"segments": stats.ActivitySegmentCount,
		"files":    len(paths),
	}).Info("conversion finished")

	return &ConvertOutput{
		Interval:    iv.String(),
		Records:     len(records),
		Stats:       stats,
		Files:       paths,
		Diagnostics: diag.Summary(),
	}, nil
}
