package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	cutoff "github.com/jamesainslie/go-cutoff"
	"github.com/jamesainslie/go-cutoff/inference"
	"github.com/jamesainslie/go-cutoff/internal/bench"
)

func main() {
	var (
		size       = flag.Int("size", 100000, "Number of synthetic samples")
		prevalence = flag.Float64("prevalence", 0.5, "Fraction of actual positives")
		separation = flag.Float64("separation", 2.0, "Logit gap between class means")
		decimals   = flag.Int("decimals", 2, "Round scores to this many decimals (0 = full precision)")
		seed       = flag.Int64("seed", 1, "Random seed")
		method     = flag.String("method", "absolute", "Penalty metric: absolute or squared")
		weight     = flag.Float64("weight", 1.0, "False-positive weight")
		counts     = flag.Bool("counts", false, "Score raw error counts instead of rates")
		wp         = flag.Float64("wp", 1.0, "Precision weight")
		wr         = flag.Float64("wr", 1.0, "Recall weight")
		sweep      = flag.Bool("sweep", false, "Compare methods and weights across separations")
		gridStep   = flag.Float64("grid-step", 0.01, "Grid step for the fixed-threshold comparison")
		modelPath  = flag.String("model", "", "Score the corpus features with this ONNX classifier")
		poolSize   = flag.Int("pool-size", 4, "Concurrent ONNX sessions")
	)
	flag.Parse()

	m, err := cutoff.ParseMethod(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	corpus := bench.CorpusConfig{
		Size:       *size,
		Prevalence: *prevalence,
		Separation: *separation,
		Decimals:   *decimals,
		Seed:       *seed,
	}
	pc := bench.PenaltyConfig{Method: m, Weight: *weight, UseRates: !*counts}
	eval := bench.DefaultConfig()
	eval.PrecisionWeight = *wp
	eval.RecallWeight = *wr

	switch {
	case *modelPath != "":
		runModel(context.Background(), *modelPath, *poolSize, corpus, pc, eval)
	case *sweep:
		runSweep(corpus, eval)
	default:
		runSingle(corpus, pc, eval, *gridStep)
	}
}

func generate(cfg bench.CorpusConfig) []cutoff.Sample {
	samples, err := bench.GenerateCorpus(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating corpus: %v\n", err)
		os.Exit(1)
	}
	return samples
}

func options(pc bench.PenaltyConfig) []cutoff.Option {
	return []cutoff.Option{cutoff.WithMethod(pc.Method), cutoff.WithWeight(pc.Weight), cutoff.WithRates(pc.UseRates)}
}

// runSingle times the exact sweep against brute-force recomputation over
// every candidate threshold and over a fixed grid.
func runSingle(corpus bench.CorpusConfig, pc bench.PenaltyConfig, eval bench.Config, gridStep float64) {
	samples := generate(corpus)
	fmt.Printf("Corpus: %d samples, prevalence %.2f, separation %.2f\n\n", len(samples), corpus.Prevalence, corpus.Separation)

	start := time.Now()
	sorted := cutoff.SortSamples(samples)
	res, err := cutoff.SweepSorted(sorted, options(pc)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during sweep: %v\n", err)
		os.Exit(1)
	}
	exact := time.Since(start)

	start = time.Now()
	candidates, err := bench.Sweep(samples, bench.CandidateThresholds(samples), pc, eval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during brute-force sweep: %v\n", err)
		os.Exit(1)
	}
	brute := time.Since(start)

	start = time.Now()
	grid, err := bench.Sweep(samples, bench.SweepThresholds(gridStep, 1, gridStep), pc, eval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error during grid sweep: %v\n", err)
		os.Exit(1)
	}
	gridTime := time.Since(start)

	eval.Threshold = res.Threshold
	m := bench.Evaluate(samples, eval)

	fmt.Printf("%-14s %-10s %-10s %-8s %-8s %s\n", "Strategy", "Cutoff", "Penalty", "F1", "Weighted", "Time")
	fmt.Println(strings.Repeat("-", 66))
	fmt.Printf("%-14s %-10.4f %-10.4f %-8.2f %-8.2f %v\n", "exact", res.Threshold, res.Score, m.F1, m.WeightedScore, exact)
	printBest("brute-force", candidates, brute)
	printBest("grid", grid, gridTime)
	fmt.Println(strings.Repeat("-", 66))

	if len(candidates) > 0 && !bench.Within(candidates[0].Penalty, res.Score, 1e-9) {
		fmt.Fprintf(os.Stderr, "mismatch: exact penalty %v, brute-force %v\n", res.Score, candidates[0].Penalty)
		os.Exit(1)
	}
}

func printBest(name string, results []bench.SweepResult, d time.Duration) {
	if len(results) == 0 {
		fmt.Printf("%-14s no thresholds\n", name)
		return
	}
	best := results[0]
	fmt.Printf("%-14s %-10.4f %-10.4f %-8.2f %-8.2f %v\n",
		name, best.Threshold, best.Penalty, best.Metrics.F1, best.Metrics.WeightedScore, d)
}

// runSweep reports the chosen cutoff for each method and weight as class
// separation grows.
func runSweep(corpus bench.CorpusConfig, eval bench.Config) {
	separations := []float64{0.5, 1, 2, 4}
	weights := []float64{0.5, 1, 2}
	methods := []cutoff.Method{cutoff.AbsoluteDistance, cutoff.DistanceSquared}

	fmt.Printf("Cutoff Sweep (n=%d, prevalence=%.2f)\n", corpus.Size, corpus.Prevalence)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%-6s %-9s %-7s %-8s %-8s %-8s %-8s\n", "Sep", "Method", "Weight", "Cutoff", "Penalty", "Prec", "Rec")

	for _, sep := range separations {
		corpus.Separation = sep
		samples := generate(corpus)
		sorted := cutoff.SortSamples(samples)
		for _, m := range methods {
			for _, w := range weights {
				res, err := cutoff.SweepSorted(sorted, cutoff.WithMethod(m), cutoff.WithWeight(w))
				if err != nil {
					fmt.Fprintf(os.Stderr, "error with sep=%.1f %s w=%.1f: %v\n", sep, m, w, err)
					continue
				}
				eval.Threshold = res.Threshold
				metrics := bench.Evaluate(samples, eval)
				fmt.Printf("%-6.1f %-9s %-7.1f %-8.3f %-8.4f %-8.2f %-8.2f\n",
					sep, m, w, res.Threshold, res.Score, metrics.Precision, metrics.Recall)
			}
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

// runModel feeds each sample's score as a one-feature row through an ONNX
// classifier and finds the cutoff of its positive-class column.
func runModel(ctx context.Context, modelPath string, poolSize int, corpus bench.CorpusConfig, pc bench.PenaltyConfig, eval bench.Config) {
	samples := generate(corpus)
	actual, scores := bench.Split(samples)

	pool, err := inference.NewPool(modelPath, poolSize, inference.DefaultIONames())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating pool: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = pool.Close() }()

	features := make([][]float32, len(scores))
	for i, s := range scores {
		features[i] = []float32{float32(s)}
	}

	start := time.Now()
	probs, err := pool.Predict(ctx, features)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error scoring: %v\n", err)
		os.Exit(1)
	}
	scoring := time.Since(start)

	_, classes := probs.Dims()
	labels := make([]float64, len(actual))
	for i, a := range actual {
		if a {
			labels[i] = 1
		}
	}

	start = time.Now()
	threshold, err := cutoff.FindColumn(labels, probs, classes-1, options(pc)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error finding cutoff: %v\n", err)
		os.Exit(1)
	}
	search := time.Since(start)

	paired := make([]cutoff.Sample, len(actual))
	for i := range actual {
		paired[i] = cutoff.Sample{Positive: actual[i], Score: probs.At(i, classes-1)}
	}
	eval.Threshold = threshold
	m := bench.Evaluate(paired, eval)

	fmt.Printf("Model: %s (%d classes, %d sessions)\n", modelPath, classes, pool.Size())
	fmt.Printf("Cutoff: %.4f  Precision: %.2f  Recall: %.2f  F1: %.2f\n", threshold, m.Precision, m.Recall, m.F1)
	fmt.Printf("(TP: %d, FP: %d, FN: %d, TN: %d)\n", m.TruePositives, m.FalsePositives, m.FalseNegatives, m.TrueNegatives)
	fmt.Printf("Scoring: %v  Search: %v\n", scoring, search)
}
