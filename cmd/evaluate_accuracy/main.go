package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"ppg-heartrate/ppg"
)

// EvaluationConfig holds evaluation parameters
type EvaluationConfig struct {
	Rates      []float64
	Noise      []float64
	Seeds      int
	Seconds    float64
	Tolerance  float64
	ReportPath string
	Verbose    bool
}

// ConditionMetrics tracks accuracy for one noise level
type ConditionMetrics struct {
	Noise         float64
	TotalTraces   int
	WithinCount   int
	Accuracy      float64
	MeanAbsError  float64
	ErrorStd      float64
	LowConfidence int
	Modes         map[string]int
	Misses        []MissInfo
}

// MissInfo stores a trace whose reading fell outside the tolerance
type MissInfo struct {
	TrueBPM     float64
	ReportedBPM int
	Seed        int64
	Mode        string
}

// EvaluationReport contains the sweep results
type EvaluationReport struct {
	Timestamp       time.Time
	TotalTraces     int
	WithinCount     int
	OverallAccuracy float64
	MeanAbsError    float64
	Conditions      []ConditionMetrics
	ProcessingTime  time.Duration
}

func main() {
	config := parseFlags()

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("=== Heart Rate Accuracy Evaluation ===")
	log.Printf("Rates: %v BPM\n", config.Rates)
	log.Printf("Noise levels: %v\n", config.Noise)
	log.Printf("Seeds per condition: %d, tolerance: ±%.0f BPM\n", config.Seeds, config.Tolerance)
	log.Println()

	cfg := ppg.DefaultConfig()
	if config.Seconds > 0 {
		cfg.MeasurementSeconds = config.Seconds
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("ERROR: invalid configuration: %v", err)
	}

	report := evaluate(cfg, config)

	printEvaluationReport(report)

	if config.ReportPath != "" {
		if err := saveReport(report, config.ReportPath); err != nil {
			log.Printf("WARNING: Failed to save report: %v\n", err)
		} else {
			log.Printf("\nReport saved to: %s\n", config.ReportPath)
		}
	}

	log.Println()
	printVerdict(report)
}

func parseFlags() EvaluationConfig {
	config := EvaluationConfig{}
	var rates, noise string

	flag.StringVar(&rates, "rates", "50,60,72,90,120", "Comma-separated heart rates to synthesise")
	flag.StringVar(&noise, "noise", "0,0.05,0.15,0.3", "Comma-separated noise levels")
	flag.IntVar(&config.Seeds, "seeds", 5, "Traces per rate and noise level")
	flag.Float64Var(&config.Seconds, "seconds", 0, "Measurement duration (0 keeps the default)")
	flag.Float64Var(&config.Tolerance, "tolerance", 5, "Accepted absolute error in BPM")
	flag.StringVar(&config.ReportPath, "report", "accuracy_report.json", "Path to save evaluation report (empty to skip)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	var err error
	if config.Rates, err = parseList(rates); err != nil {
		log.Fatalf("invalid -rates: %v", err)
	}
	if config.Noise, err = parseList(noise); err != nil {
		log.Fatalf("invalid -noise: %v", err)
	}
	return config
}

func parseList(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func evaluate(cfg ppg.Config, config EvaluationConfig) EvaluationReport {
	report := EvaluationReport{Timestamp: time.Now()}

	var allErrors []float64
	for _, noise := range config.Noise {
		metrics, errs := evaluateCondition(cfg, noise, config)
		report.Conditions = append(report.Conditions, metrics)
		report.TotalTraces += metrics.TotalTraces
		report.WithinCount += metrics.WithinCount
		allErrors = append(allErrors, errs...)
	}

	if report.TotalTraces > 0 {
		report.OverallAccuracy = float64(report.WithinCount) / float64(report.TotalTraces) * 100
	}
	if len(allErrors) > 0 {
		report.MeanAbsError = stat.Mean(allErrors, nil)
	}
	report.ProcessingTime = time.Since(report.Timestamp)
	return report
}

func evaluateCondition(cfg ppg.Config, noise float64, config EvaluationConfig) (ConditionMetrics, []float64) {
	metrics := ConditionMetrics{Noise: noise, Modes: make(map[string]int)}
	var absErrors []float64

	for _, bpm := range config.Rates {
		for seed := int64(1); seed <= int64(config.Seeds); seed++ {
			metrics.TotalTraces++

			sc := ppg.CleanSyntheticConfig(bpm, cfg.SampleRate)
			sc.NoiseLevel = noise
			sc.HRVDepth = 0.03
			sc.RespirationRate = 0.25
			sc.RespirationAmplitude = 0.1
			sc.Seed = seed

			samples := ppg.NewSyntheticGenerator(sc).Generate(cfg.Capacity())
			report, err := ppg.AnalyzeRecording(samples, cfg)
			if err != nil {
				if config.Verbose {
					log.Printf("  ERROR bpm=%.0f noise=%.2f seed=%d: %v\n", bpm, noise, seed, err)
				}
				continue
			}

			mode := report.Result.Mode.String()
			metrics.Modes[mode]++
			if report.LowConfidence {
				metrics.LowConfidence++
			}

			diff := math.Abs(float64(report.Result.BPM) - bpm)
			absErrors = append(absErrors, diff)
			if diff <= config.Tolerance {
				metrics.WithinCount++
			} else {
				metrics.Misses = append(metrics.Misses, MissInfo{
					TrueBPM:     bpm,
					ReportedBPM: report.Result.BPM,
					Seed:        seed,
					Mode:        mode,
				})
			}
		}
	}

	if metrics.TotalTraces > 0 {
		metrics.Accuracy = float64(metrics.WithinCount) / float64(metrics.TotalTraces) * 100
	}
	if len(absErrors) > 0 {
		metrics.MeanAbsError, metrics.ErrorStd = stat.PopMeanStdDev(absErrors, nil)
	}
	return metrics, absErrors
}

func printEvaluationReport(report EvaluationReport) {
	log.Println("=== Evaluation Results ===")
	log.Printf("Overall Accuracy: %.2f%% (%d/%d within tolerance)\n",
		report.OverallAccuracy, report.WithinCount, report.TotalTraces)
	log.Printf("Mean Absolute Error: %.2f BPM\n", report.MeanAbsError)
	log.Printf("Processing Time: %.2f seconds\n", report.ProcessingTime.Seconds())
	log.Println()

	log.Printf("%-8s %8s %8s %8s %8s   %s\n", "Noise", "Accuracy", "MAE", "Std", "LowConf", "Modes")
	for _, m := range report.Conditions {
		log.Printf("%-8.2f %7.1f%% %8.2f %8.2f %8d   %s\n",
			m.Noise, m.Accuracy, m.MeanAbsError, m.ErrorStd, m.LowConfidence, formatModes(m.Modes))
	}

	printMisses(report.Conditions)
}

func formatModes(modes map[string]int) string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, modes[name])
	}
	return strings.Join(parts, " ")
}

func printMisses(conditions []ConditionMetrics) {
	total := 0
	for _, m := range conditions {
		total += len(m.Misses)
	}
	if total == 0 {
		return
	}

	log.Println()
	log.Printf("Readings outside tolerance (%d total):\n", total)
	for _, m := range conditions {
		for _, miss := range m.Misses {
			log.Printf("  noise=%.2f true=%.0f reported=%d seed=%d mode=%s\n",
				m.Noise, miss.TrueBPM, miss.ReportedBPM, miss.Seed, miss.Mode)
		}
	}
}

func printVerdict(report EvaluationReport) {
	var verdict, recommendation string
	switch {
	case report.OverallAccuracy >= 95:
		verdict = "EXCELLENT"
		recommendation = "Estimator is robust across the tested noise levels"
	case report.OverallAccuracy >= 80:
		verdict = "GOOD"
		recommendation = "Inspect the noisiest condition before tightening thresholds"
	case report.OverallAccuracy >= 60:
		verdict = "FAIR"
		recommendation = "Review fusion weights and the quality thresholds"
	default:
		verdict = "POOR"
		recommendation = "Check band limits and peak refractory settings"
	}

	log.Println("=== Verdict ===")
	log.Printf("Overall Assessment: %s\n", verdict)
	log.Printf("Accuracy: %.2f%%, MAE: %.2f BPM\n", report.OverallAccuracy, report.MeanAbsError)
	log.Printf("Recommendation: %s\n", recommendation)
}

func saveReport(report EvaluationReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
