package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// FFmpegAdapter is the production Adapter, shelling out to ffprobe/ffmpeg
// exactly the way the teacher's analyzer.probeFile/runVolumeDetect/
// runLoudnessAnalysis do, generalized into the closed Request/Reading
// contract and bounded by a process-wide semaphore (spec §5:
// maxProbeConcurrency).
type FFmpegAdapter struct {
	FFprobePath string
	FFmpegPath  string
	sem         *semaphore.Weighted
}

func NewFFmpegAdapter(ffprobePath, ffmpegPath string, maxConcurrency int) *FFmpegAdapter {
	if maxConcurrency <= 0 {
		maxConcurrency = 17
	}
	return &FFmpegAdapter{
		FFprobePath: ffprobePath,
		FFmpegPath:  ffmpegPath,
		sem:         semaphore.NewWeighted(int64(maxConcurrency)),
	}
}

func (a *FFmpegAdapter) Probe(ctx context.Context, filePath string, req Request) (*Reading, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, &Error{Kind: req.Kind, Cause: err}
	}
	defer a.sem.Release(1)

	switch req.Kind {
	case KindFormatInfo:
		return a.formatInfo(ctx, filePath)
	case KindOverallStats:
		return a.overallStats(ctx, filePath)
	case KindBandStats:
		return a.bandStats(ctx, filePath, req.LowHz, req.HighHz)
	case KindLoudnessR128:
		return a.loudnessR128(ctx, filePath)
	case KindPhaseCorrelation:
		return a.phaseCorrelation(ctx, filePath)
	case KindSpectralStats:
		return a.spectralStats(ctx, filePath)
	case KindWindowedStats:
		return a.windowedStats(ctx, filePath, req.WindowMs)
	case KindSilenceDetect:
		return a.silenceDetect(ctx, filePath, req.ThresholdDb, req.MinDurSec)
	default:
		return nil, &Error{Kind: req.Kind, Cause: fmt.Errorf("unsupported probe request kind")}
	}
}

type ffprobeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

type ffprobeStream struct {
	Index            int    `json:"index"`
	CodecType        string `json:"codec_type"`
	CodecName        string `json:"codec_name"`
	SampleRate       string `json:"sample_rate"`
	Channels         int    `json:"channels"`
	BitsPerSample    int    `json:"bits_per_sample"`
	BitsPerRawSample string `json:"bits_per_raw_sample"`
}

type ffprobeResult struct {
	Format  ffprobeFormat    `json:"format"`
	Streams []ffprobeStream  `json:"streams"`
}

func (a *FFmpegAdapter) formatInfo(ctx context.Context, filePath string) (*Reading, error) {
	args := []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", filePath}
	cmd := exec.CommandContext(ctx, a.FFprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, &Error{Kind: KindFormatInfo, Cause: err}
	}

	var parsed ffprobeResult
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, &Error{Kind: KindFormatInfo, Cause: err}
	}

	reading := &Reading{Kind: KindFormatInfo}
	for _, s := range parsed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		reading.Codec = s.CodecName
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			reading.SampleRate = sr
		}
		reading.Channels = s.Channels
		reading.BitDepth = s.BitsPerSample
		if reading.BitDepth == 0 && s.BitsPerRawSample != "" {
			if bd, err := strconv.Atoi(s.BitsPerRawSample); err == nil {
				reading.BitDepth = bd
			}
		}
		break
	}
	if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		reading.DurationSec = Some(dur)
	}
	return reading, nil
}

func (a *FFmpegAdapter) overallStats(ctx context.Context, filePath string) (*Reading, error) {
	args := []string{"-i", filePath, "-af", "volumedetect", "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	reading := &Reading{Kind: KindOverallStats}
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := fieldAfter(line, "max_volume:"); ok {
			reading.PeakDb = Some(v)
		}
		if v, ok := fieldAfter(line, "mean_volume:"); ok {
			reading.RMSDb = Some(v)
		}
	}
	if !reading.PeakDb.Valid && !reading.RMSDb.Valid {
		log.Warn().Str("path", filePath).Msg("ffmpeg volumedetect produced no parsable output")
		return nil, &Error{Kind: KindOverallStats, Cause: fmt.Errorf("no volumedetect output")}
	}
	return reading, nil
}

func (a *FFmpegAdapter) bandStats(ctx context.Context, filePath string, lowHz, highHz float64) (*Reading, error) {
	filter := fmt.Sprintf("bandpass=f=%f:w=%f,volumedetect", (lowHz+highHz)/2, highHz-lowHz)
	args := []string{"-i", filePath, "-af", filter, "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	reading := &Reading{Kind: KindBandStats}
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := fieldAfter(line, "mean_volume:"); ok {
			reading.BandEnergyRatio = Some(v)
		}
	}
	return reading, nil
}

func (a *FFmpegAdapter) loudnessR128(ctx context.Context, filePath string) (*Reading, error) {
	args := []string{"-i", filePath, "-af", "ebur128=peak=true", "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	reading := &Reading{Kind: KindLoudnessR128}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "I:") && strings.Contains(line, "LUFS") {
			fields := strings.Fields(line)
			for i, f := range fields {
				if f == "I:" && i+1 < len(fields) {
					if v, err := strconv.ParseFloat(fields[i+1], 64); err == nil {
						reading.IntegratedLUFS = Some(v)
					}
				}
				if f == "LRA:" && i+1 < len(fields) {
					if v, err := strconv.ParseFloat(fields[i+1], 64); err == nil {
						reading.LoudnessRangeLU = Some(v)
					}
				}
			}
		}
		if v, ok := fieldAfter(line, "Peak:"); ok {
			reading.TruePeakDb = Some(v)
		}
	}
	if !reading.IntegratedLUFS.Valid {
		return reading, nil // silence / too-short asset: caller treats as UNKNOWN, not an error
	}
	return reading, nil
}

func (a *FFmpegAdapter) phaseCorrelation(ctx context.Context, filePath string) (*Reading, error) {
	args := []string{"-i", filePath, "-af", "aphasemeter=video=0", "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	reading := &Reading{Kind: KindPhaseCorrelation}
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := fieldAfter(line, "phase:"); ok {
			reading.CorrelationOverall = Some(v)
		}
	}
	return reading, nil
}

func (a *FFmpegAdapter) spectralStats(ctx context.Context, filePath string) (*Reading, error) {
	args := []string{"-i", filePath, "-af", "astats=metadata=1", "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	_, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &Error{Kind: KindSpectralStats, Cause: err}
	}
	// astats metadata requires a frame-level sidecar parse not modeled here;
	// higher layers combine this with band-stats requests instead.
	return &Reading{Kind: KindSpectralStats}, nil
}

func (a *FFmpegAdapter) windowedStats(ctx context.Context, filePath string, windowMs float64) (*Reading, error) {
	if windowMs <= 0 {
		windowMs = 400
	}
	args := []string{"-i", filePath, "-af", fmt.Sprintf("ebur128=peak=true:metadata=1:framelog=verbose"), "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	var windows []float64
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := fieldAfter(line, "M:"); ok {
			windows = append(windows, v)
		}
	}
	return &Reading{Kind: KindWindowedStats, WindowsDb: windows}, nil
}

func (a *FFmpegAdapter) silenceDetect(ctx context.Context, filePath string, thresholdDb, minDurSec float64) (*Reading, error) {
	if thresholdDb == 0 {
		thresholdDb = -55
	}
	if minDurSec == 0 {
		minDurSec = 0.5
	}
	filter := fmt.Sprintf("silencedetect=noise=%fdB:d=%f", thresholdDb, minDurSec)
	args := []string{"-i", filePath, "-af", filter, "-f", "null", "-"}
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	out, _ := cmd.CombinedOutput()

	var silentSec float64
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := fieldAfter(line, "silence_duration:"); ok {
			silentSec += v
		}
	}
	return &Reading{Kind: KindSilenceDetect, SilenceFraction: Some(silentSec)}, nil
}

// fieldAfter extracts the first numeric token following label in line.
func fieldAfter(line, label string) (float64, bool) {
	idx := strings.Index(line, label)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(line[idx+len(label):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "dB"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
