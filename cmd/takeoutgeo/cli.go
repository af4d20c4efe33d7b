package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/config"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/geo"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/logger"
	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/ops"
)

// newCLIApp creates the CLI application. configDir is where config.toml is
// looked up; empty means ~/.config/takeoutgeo.
func newCLIApp(configDir string, stdout, stderr io.Writer) *cli.App {
	app := &cli.App{
		Name:      "takeoutgeo",
		Usage:     "Convert Google Takeout semantic location history to GeoJSON and KML",
		UsageText: "takeoutgeo [options] [month-file.json ...]",
		Version:   Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     convertFlags(),
		Action: func(c *cli.Context) error {
			return runConvert(c, configDir, stdout, stderr)
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func convertFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "takeout-dir", Aliases: []string{"d"}, Usage: "Takeout archive root or its Semantic Location History directory"},
		&cli.IntFlag{Name: "entries-per-file", Aliases: []string{"e"}, Usage: "Maximum features per output file (0 = single file)"},
		&cli.BoolFlag{Name: "generate-kml", Aliases: []string{"k"}, Usage: "Also write KML files"},
		&cli.BoolFlag{Name: "exclude-geojson", Aliases: []string{"eg"}, Usage: "Do not write GeoJSON files"},
		&cli.BoolFlag{Name: "pretty-output", Aliases: []string{"p"}, Usage: "Indent output files"},
		&cli.StringFlag{Name: "start-date", Aliases: []string{"sd"}, Usage: "Interval start, ISO-8601 (default: Unix epoch)"},
		&cli.StringFlag{Name: "end-date", Aliases: []string{"ed"}, Usage: "Interval end, ISO-8601 (default: now)"},
		&cli.BoolFlag{Name: "print-stats", Aliases: []string{"s"}, Usage: "Print feature counts when done"},
		&cli.BoolFlag{Name: "json", Usage: "Print the run summary as JSON"},
		&cli.StringFlag{Name: "output-name", Aliases: []string{"o"}, Usage: "Output base file name (default: out)"},
		&cli.StringFlag{Name: "output-dir", Usage: "Directory to write output files into (default: .)"},
		&cli.BoolFlag{Name: "include-all-waypoints", Aliases: []string{"w"}, Usage: "Include waypoints between segment endpoints"},
		&cli.BoolFlag{Name: "include-timestamps", Aliases: []string{"t"}, Usage: "Add a timestamp property with each record's start time"},
		&cli.StringSliceFlag{Name: "metadata", Aliases: []string{"m"}, Usage: "Metadata properties to add, comma separated or repeated with the same spelling (-m a -m b): " + fmt.Sprint(geo.ValidMetadataKeys())},
		&cli.StringFlag{Name: "config", Usage: "Path to a TOML config file layered over the global one"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug|info|warn|error (default: warn)"},
		&cli.StringFlag{Name: "log-format", Usage: "Log format: text|json (default: text)"},
	}
}

func runConvert(c *cli.Context, configDir string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(c, configDir)
	if err != nil {
		return outputError(err)
	}

	log := logger.WithRun(logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, stderr), logger.NewRunID())

	if cfg.ExcludeGeoJSON && !cfg.GenerateKML {
		log.Warn("GeoJSON is excluded and KML generation is off; no output files will be written")
	}

	output, err := ops.Convert(c.Context, cfg, ops.ConvertInput{
		Files:     c.Args().Slice(),
		StartDate: c.String("start-date"),
		EndDate:   c.String("end-date"),
	}, log)
	if err != nil {
		log.WithFields(logrus.Fields{"code": errors.CodeOf(err)}).Debug(err.Error())
		return outputError(err)
	}

	if c.Bool("json") {
		return outputJSON(stdout, output)
	}
	if c.Bool("print-stats") {
		printStats(stdout, output)
	}
	return nil
}

// loadConfig layers defaults, the global config file, --config and flags.
func loadConfig(c *cli.Context, configDir string) (*config.Config, error) {
	if configDir == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("could not determine config directory: %w", err))
		}
		configDir = dir
	}

	cfg, err := config.LoadWithOverride(configDir, c.String("config"))
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err))
	}

	if c.IsSet("takeout-dir") {
		cfg.TakeoutDir = c.String("takeout-dir")
	}
	if c.IsSet("entries-per-file") {
		cfg.EntriesPerFile = c.Int("entries-per-file")
	}
	if c.IsSet("generate-kml") {
		cfg.GenerateKML = c.Bool("generate-kml")
	}
	if c.IsSet("exclude-geojson") {
		cfg.ExcludeGeoJSON = c.Bool("exclude-geojson")
	}
	if c.IsSet("pretty-output") {
		cfg.PrettyOutput = c.Bool("pretty-output")
	}
	if c.IsSet("output-name") {
		cfg.OutputName = c.String("output-name")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("include-all-waypoints") {
		cfg.IncludeAllWaypoints = c.Bool("include-all-waypoints")
	}
	if c.IsSet("include-timestamps") {
		cfg.IncludeTimestamps = c.Bool("include-timestamps")
	}
	if c.IsSet("metadata") {
		cfg.Metadata = c.StringSlice("metadata")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}

	return cfg, nil
}

func printStats(w io.Writer, out *ops.ConvertOutput) {
	fmt.Fprintf(w, "%d places and %d activity segments are in your final output.\n",
		out.Stats.PlaceCount, out.Stats.ActivitySegmentCount)
	for _, d := range out.Diagnostics {
		fmt.Fprintf(w, "  %s: %d\n", d.Kind, d.Count)
	}
	for _, f := range out.Files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
