// fluxcopy copies time-series points from one InfluxDB v2 bucket to another
// across a bounded time range, optionally renaming measurements and fields
// and remapping or injecting tags along the way.
//
// Credentials come from .influx.toml files (url, org, token). Typical use:
//
//	fluxcopy --src-config src.toml --dst-config dst.toml \
//	  --src-bucket plant --dst-bucket plant \
//	  --start 2025-01-01T00:00:00Z --stop 2025-01-14T00:00:00Z \
//	  --measurement heaters \
//	  --tag-map 'id=heaters*->control' \
//	  --measurement-map 'heaters->control' \
//	  --tag-inject env=production
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/config"
	"github.com/basekick-labs/fluxcopy/internal/copier"
	"github.com/basekick-labs/fluxcopy/internal/flux"
	"github.com/basekick-labs/fluxcopy/internal/influx"
	"github.com/basekick-labs/fluxcopy/internal/logger"
	"github.com/basekick-labs/fluxcopy/internal/rules"
	"github.com/basekick-labs/fluxcopy/internal/transform"
)

// Version is set at build time
var Version = "dev"

// stringList collects repeatable flags.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	relativeTimeRE = regexp.MustCompile(`^-(\d+)([smhdw])$`)
	durationRE     = regexp.MustCompile(`^(\d+)([smhdw])$`)
)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
	"w": 604800,
}

// parseTime accepts RFC3339 timestamps, "now()" and relative offsets like
// "-4d" (s/m/h/d/w units), all resolved to UTC.
func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "now()" {
		return now, nil
	}
	if m := relativeTimeRE.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return now.Add(-time.Duration(n*unitSeconds[m[2]]) * time.Second), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// parseWindow parses a window duration like "30m", "6h", "1d" or "2w".
func parseWindow(s string) (time.Duration, error) {
	m := durationRE.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("window must be like '30m', '6h', '1d', '2w', got %q", s)
	}
	n, _ := strconv.ParseInt(m[1], 10, 64)
	return time.Duration(n*unitSeconds[m[2]]) * time.Second, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "fluxcopy: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	var (
		srcConfigPath = flag.String("src-config", "", "Path to source .influx.toml (required)")
		dstConfigPath = flag.String("dst-config", "", "Path to destination .influx.toml (required)")
		srcBucket     = flag.String("src-bucket", "", "Source bucket (required)")
		dstBucket     = flag.String("dst-bucket", "", "Destination bucket (required)")
		startArg      = flag.String("start", "", "Range start: RFC3339, now() or relative like -4d (required)")
		stopArg       = flag.String("stop", "now()", "Range stop (default now)")
		windowArg     = flag.String("window", "6h", "Query window size, e.g. 30m, 6h, 1d")
		batchSize     = flag.Int("batch-size", copier.DefaultBatchSize, "Points buffered per destination write")
		measurementRe = flag.String("measurement-regex", "", "Select measurements by regex (conflicts with --measurement)")
		verify        = flag.Bool("verify", false, "Count source records per window; no transform, no write")
		dryRun        = flag.Bool("dry-run", false, "Transform and log points without writing")
		verbose       = flag.Bool("verbose", false, "Enable debug logging")
		logFormat     = flag.String("log-format", "console", "Log format: console or json")
		showVersion   = flag.Bool("version", false, "Print version and exit")

		measurements    stringList
		fields          stringList
		tagFilters      stringList
		tagMaps         stringList
		measurementMaps stringList
		fieldMaps       stringList
		tagInjects      stringList
	)
	flag.Var(&measurements, "measurement", "Measurement to copy (repeatable)")
	flag.Var(&fields, "field", "Field to copy (repeatable; default all)")
	flag.Var(&tagFilters, "tag", "Source tag filter KEY=VALUE or KEY=~/RE/ (repeatable)")
	flag.Var(&tagMaps, "tag-map", "Tag value rewrite KEY=FROM->TO (repeatable)")
	flag.Var(&measurementMaps, "measurement-map", "Measurement rename FROM->TO (repeatable)")
	flag.Var(&fieldMaps, "field-map", "Field rename FROM->TO (repeatable)")
	flag.Var(&tagInjects, "tag-inject", "Tag injection KEY=VALUE or KEY=SRC:FROM->TO (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Println("fluxcopy " + Version)
		return
	}

	if *srcConfigPath == "" || *dstConfigPath == "" {
		fatal("--src-config and --dst-config are required")
	}
	if *srcBucket == "" || *dstBucket == "" {
		fatal("--src-bucket and --dst-bucket are required")
	}
	if *startArg == "" {
		fatal("--start is required")
	}
	if *verify && *dryRun {
		fatal("--verify and --dry-run are mutually exclusive")
	}
	if len(measurements) > 0 && *measurementRe != "" {
		fatal("--measurement and --measurement-regex are mutually exclusive")
	}

	now := time.Now().UTC()
	start, err := parseTime(*startArg, now)
	if err != nil {
		fatal("invalid --start: %v", err)
	}
	stop, err := parseTime(*stopArg, now)
	if err != nil {
		fatal("invalid --stop: %v", err)
	}
	windowStep, err := parseWindow(*windowArg)
	if err != nil {
		fatal("invalid --window: %v", err)
	}

	transformer := &transform.Transformer{}
	for _, spec := range measurementMaps {
		r, err := rules.ParseNameRule(spec)
		if err != nil {
			fatal("%v", err)
		}
		transformer.MeasurementRules = append(transformer.MeasurementRules, r)
	}
	for _, spec := range fieldMaps {
		r, err := rules.ParseNameRule(spec)
		if err != nil {
			fatal("%v", err)
		}
		transformer.FieldRules = append(transformer.FieldRules, r)
	}
	for _, spec := range tagMaps {
		r, err := rules.ParseTagRule(spec)
		if err != nil {
			fatal("%v", err)
		}
		transformer.TagRules = append(transformer.TagRules, r)
	}
	for _, spec := range tagInjects {
		r, err := rules.ParseInjectRule(spec)
		if err != nil {
			fatal("%v", err)
		}
		transformer.InjectRules = append(transformer.InjectRules, r)
	}

	var filters []flux.TagFilter
	for _, spec := range tagFilters {
		f, err := flux.ParseTagFilter(spec)
		if err != nil {
			fatal("%v", err)
		}
		filters = append(filters, f)
	}

	mode := copier.ModeWrite
	if *dryRun {
		mode = copier.ModeDryRun
	}
	if *verify {
		mode = copier.ModeVerify
	}

	log := logger.New(*verbose, *logFormat)
	log.Info().Str("version", Version).Msg("Starting fluxcopy")

	srcCfg, err := config.LoadInfluxConfig(*srcConfigPath)
	if err != nil {
		fatal("%v", err)
	}
	dstCfg, err := config.LoadInfluxConfig(*dstConfigPath)
	if err != nil {
		fatal("%v", err)
	}
	log.Debug().Interface("src", srcCfg.Redacted()).Interface("dst", dstCfg.Redacted()).Msg("Loaded client configs")

	src := influx.NewHTTPClient(srcCfg, logger.Component(log, "source"))
	defer src.Close()
	dst := influx.NewHTTPClient(dstCfg, logger.Component(log, "destination"))
	defer dst.Close()

	c := copier.New(src, dst, transformer, copier.Options{
		SrcBucket:        *srcBucket,
		DstBucket:        *dstBucket,
		Start:            start,
		Stop:             stop,
		Window:           windowStep,
		BatchSize:        *batchSize,
		Mode:             mode,
		Measurements:     measurements,
		MeasurementRegex: *measurementRe,
		TagFilters:       filters,
		Fields:           fields,
	}, log)

	summary, err := c.Run(context.Background())
	if err != nil {
		log.Error().Err(err).
			Int("windows_processed", summary.Windows).
			Int64("written", summary.Written).
			Msg("Copy aborted")
		src.Close()
		dst.Close()
		os.Exit(1)
	}
}
