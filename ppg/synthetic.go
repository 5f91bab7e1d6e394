package ppg

import (
	"math"
	"math/rand"
)

// SyntheticConfig parameterises the synthetic PPG generator. Amplitudes are in
// units of the normalised "total signal"; per-channel gains map it to 0-255.
type SyntheticConfig struct {
	SampleRate float64
	HeartRate  float64 // BPM, centre of the instantaneous rate
	HRVDepth   float64 // fractional rate modulation, 0 fixes the rate

	RespirationRate      float64 // Hz
	RespirationAmplitude float64
	VasomotorAmplitude   float64 // ~0.1 Hz baseline wander

	NoiseLevel          float64 // std of continuous micro-jitter
	ArtifactProbability float64 // per-sample chance of a movement spike
	ArtifactAmplitude   float64
	MainsAmplitude      float64 // 50/60 Hz light flicker, aliased by the sampler

	Baseline Sample     // channel DC levels; the timestamp is ignored
	Gain     [3]float64 // red, green, blue sensitivity to the total signal

	StartMs int64
	Seed    int64
}

// CleanSyntheticConfig is a fixed-rate cardiac waveform without noise,
// variability or interference.
func CleanSyntheticConfig(bpm, sampleRate float64) SyntheticConfig {
	return SyntheticConfig{
		SampleRate: sampleRate,
		HeartRate:  bpm,
		Baseline:   Sample{Red: 180, Green: 60, Blue: 40},
		Gain:       [3]float64{6, 2.5, 1},
		Seed:       1,
	}
}

// SyntheticConfigFromQuality derives generator settings from measured quality
// so the synthetic trace carries the same apparent noise level as the real
// one. Baselines that are zero or clipped fall back to typical fingertip levels.
func SyntheticConfigFromQuality(q QualityMetrics, baseline Sample, bpm, sampleRate float64, seed int64) SyntheticConfig {
	cfg := CleanSyntheticConfig(bpm, sampleRate)
	cfg.Seed = seed

	if baseline.Red > 20 && baseline.Red < 235 {
		cfg.Baseline.Red = baseline.Red
	}
	if baseline.Green > 20 && baseline.Green < 245 {
		cfg.Baseline.Green = baseline.Green
	}
	if baseline.Blue > 20 && baseline.Blue < 245 {
		cfg.Baseline.Blue = baseline.Blue
	}

	unconfident := 1 - clamp01(q.Confidence)
	unstable := 1 - clamp01(q.Stability)

	cfg.HRVDepth = 0.04
	cfg.RespirationRate = 0.25
	cfg.RespirationAmplitude = 0.15
	cfg.VasomotorAmplitude = 0.1
	cfg.NoiseLevel = 0.05 + 0.25*unconfident
	cfg.ArtifactProbability = 0.005 + 0.02*unstable
	cfg.ArtifactAmplitude = 1.5
	cfg.MainsAmplitude = 0.02 + 0.05*clamp01(q.Saturation)
	return cfg
}

// SyntheticGenerator produces samples from a heart-rate-variability model.
// A fixed seed gives a reproducible sequence.
type SyntheticGenerator struct {
	cfg   SyntheticConfig
	rng   *rand.Rand
	phase float64 // cardiac phase in radians
	tick  int64
	spike float64 // decaying movement artifact
}

func NewSyntheticGenerator(cfg SyntheticConfig) *SyntheticGenerator {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 30
	}
	if cfg.Gain == ([3]float64{}) {
		cfg.Gain = [3]float64{6, 2.5, 1}
	}
	return &SyntheticGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Next returns the next sample and advances time by one sampling period.
func (g *SyntheticGenerator) Next() Sample {
	t := float64(g.tick) / g.cfg.SampleRate
	total := g.cardiac() + g.baselineWander(t) + g.interference(t) + g.artifact()

	s := Sample{
		Red:         clamp(g.cfg.Baseline.Red+g.cfg.Gain[0]*total, 0, 255),
		Green:       clamp(g.cfg.Baseline.Green+g.cfg.Gain[1]*total, 0, 255),
		Blue:        clamp(g.cfg.Baseline.Blue+g.cfg.Gain[2]*total, 0, 255),
		TimestampMs: g.cfg.StartMs + int64(math.Round(float64(g.tick)*1000/g.cfg.SampleRate)),
	}

	g.phase += 2 * math.Pi * g.instantaneousRate(t) / 60 / g.cfg.SampleRate
	if g.phase >= 2*math.Pi {
		g.phase -= 2 * math.Pi
	}
	g.tick++
	return s
}

// Generate returns n consecutive samples.
func (g *SyntheticGenerator) Generate(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

// instantaneousRate modulates the base rate with respiratory, baroreflex and
// thermoregulatory rhythms.
func (g *SyntheticGenerator) instantaneousRate(t float64) float64 {
	if g.cfg.HRVDepth == 0 {
		return g.cfg.HeartRate
	}
	resp := g.cfg.RespirationRate
	if resp <= 0 {
		resp = 0.25
	}
	mod := 0.6*math.Sin(2*math.Pi*resp*t) +
		0.3*math.Sin(2*math.Pi*0.1*t+1) +
		0.1*math.Sin(2*math.Pi*0.03*t+2)
	return g.cfg.HeartRate * (1 + g.cfg.HRVDepth*mod)
}

// cardiac is a fundamental with two harmonics and a dicrotic notch on the
// descending limb. The harmonic weights keep a single maximum per beat.
func (g *SyntheticGenerator) cardiac() float64 {
	p := g.phase
	w := math.Cos(p) + 0.25*math.Cos(2*p) + 0.06*math.Cos(3*p)
	return w - 0.04*gauss(p, 2.2, 0.25)
}

func (g *SyntheticGenerator) baselineWander(t float64) float64 {
	return g.cfg.RespirationAmplitude*math.Sin(2*math.Pi*g.cfg.RespirationRate*t) +
		g.cfg.VasomotorAmplitude*math.Sin(2*math.Pi*0.1*t+0.5)
}

func (g *SyntheticGenerator) interference(t float64) float64 {
	if g.cfg.MainsAmplitude == 0 {
		return 0
	}
	return g.cfg.MainsAmplitude * (math.Sin(2*math.Pi*50*t) + 0.5*math.Sin(2*math.Pi*100*t+0.3))
}

func (g *SyntheticGenerator) artifact() float64 {
	var v float64
	if g.cfg.NoiseLevel > 0 {
		v += g.rng.NormFloat64() * g.cfg.NoiseLevel
	}
	if g.cfg.ArtifactProbability > 0 && g.rng.Float64() < g.cfg.ArtifactProbability {
		sign := 1.0
		if g.rng.Intn(2) == 0 {
			sign = -1
		}
		g.spike = sign * g.cfg.ArtifactAmplitude * (0.5 + g.rng.Float64())
	}
	v += g.spike
	g.spike *= 0.5
	return v
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}
