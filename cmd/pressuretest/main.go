// Command pressuretest runs the batch pressure-test harness (spec §4.14)
// against a catalog directory and prints the aggregate report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-audio/sentinel/internal/analyzers"
	"github.com/meridian-audio/sentinel/internal/pressuretest"
	"github.com/meridian-audio/sentinel/internal/probe"
)

type rngAdapter struct{ r *rand.Rand }

func (a rngAdapter) Intn(n int) int { return a.r.Intn(n) }

var cli struct {
	Catalog    string   `arg:"" help:"Catalog directory to scan."`
	Extensions []string `help:"Extension allowlist (default: wav,flac,aiff,mp3,m4a)."`
	Sample     int      `help:"Uniformly sample N files without replacement (0 = all)." default:"0"`
	Seed       int64    `help:"Seed for deterministic sampling." default:"1"`
	FFprobe    string   `help:"Path to ffprobe." default:"ffprobe"`
	FFmpeg     string   `help:"Path to ffmpeg." default:"ffmpeg"`
	Debug      bool     `help:"Enable debug logging."`
}

func main() {
	kong.Parse(&cli, kong.Description("Runs the Sentinel pressure-test harness over a catalog directory."))

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cli.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	extensions := cli.Extensions
	for i := range extensions {
		if extensions[i][0] != '.' {
			extensions[i] = "." + extensions[i]
		}
	}

	files, err := pressuretest.ScanCatalog(cli.Catalog, extensions)
	if err != nil {
		log.Fatal().Err(err).Str("catalog", cli.Catalog).Msg("failed to scan catalog")
	}
	log.Info().Int("total_files", len(files)).Msg("catalog scanned")

	if cli.Sample > 0 {
		rng := rngAdapter{r: rand.New(rand.NewSource(cli.Seed))}
		files = pressuretest.SampleUniform(files, cli.Sample, rng)
		log.Info().Int("sampled", len(files)).Msg("uniform sample drawn")
	}

	adapter := probe.NewFFmpegAdapter(cli.FFprobe, cli.FFmpeg, 0)
	report := pressuretest.Run(context.Background(), adapter, files, analyzers.DefaultOptions())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Aggregate); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
