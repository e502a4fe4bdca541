package node

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"github.com/cwbudde/algo-vecmath"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/signal"
)

// Window is a window function applied before FFT.
type Window int

const (
	// Rectangular window.
	Rectangular Window = iota
	// Hann window.
	Hann
	// Hamming window.
	Hamming
	// Blackman window.
	Blackman
	// BlackmanHarris is a 4-term Blackman-Harris window.
	BlackmanHarris
	// FlatTop window keeps amplitude of peaks between bins.
	FlatTop
)

var windowTypes = map[Window]window.Type{
	Rectangular:    window.TypeRectangular,
	Hann:           window.TypeHann,
	Hamming:        window.TypeHamming,
	Blackman:       window.TypeBlackman,
	BlackmanHarris: window.TypeBlackmanHarris4Term,
	FlatTop:        window.TypeFlatTop,
}

const (
	// DefaultFFTSize is used when size is not provided.
	DefaultFFTSize = 2048
	// MinDB is the floor of spectrum magnitudes.
	MinDB = -120.0

	spectrumSmoothing = 0.8
	epsilon           = 1e-12
)

// ParseWindow returns window by its name.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(s) {
	case "rectangular", "none":
		return Rectangular, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackman-harris", "blackmanharris":
		return BlackmanHarris, nil
	case "flattop", "flat-top":
		return FlatTop, nil
	}
	return Hann, fmt.Errorf("unknown window: %q", s)
}

// coefficients returns periodic window of provided size.
func (w Window) coefficients(size int) []float64 {
	t, ok := windowTypes[w]
	if !ok {
		t = window.TypeRectangular
	}
	return window.Generate(t, size, window.WithPeriodic())
}

// Spectrum is a snapshot of analyzer output.
type Spectrum struct {
	// Magnitudes of frequency bins in dB.
	Magnitudes []float64
	// Frequencies of bin centers in Hz.
	Frequencies []float64
	SampleRate  float64
	FFTSize     int
}

// Analyzer passes signal through and computes smoothed magnitude spectrum
// of the first two input channels averaged. Analysis runs every FFTSize
// samples.
type Analyzer struct {
	Base
	size   int
	window Window

	state atomic.Pointer[analysis]
	// guards published spectrum of the current state
	mu sync.Mutex
}

// analysis holds FFT plan and buffers for a single config.
type analysis struct {
	sampleRate float64
	plan       *algofft.Plan[complex128]
	coeffs     []float64
	// normalization of bin magnitude
	scale float64

	ring   []float64
	write  int
	frame  []float64
	input  []complex128
	output []complex128
	re     []float64
	im     []float64
	mag    []float64
	// smoothed is owned by real-time goroutine
	smoothed []float64
	frames   int

	published []float64
	ready     bool
}

// NewAnalyzer returns analyzer. Size is rounded up to the power of two.
func NewAnalyzer(name string, size int, window Window) *Analyzer {
	n := &Analyzer{
		size:   nextPowerOfTwo(size),
		window: window,
	}
	n.init("analyzer", name)
	return n
}

// FFTSize returns number of samples in analysis frame.
func (n *Analyzer) FFTSize() int {
	return n.size
}

// Prepare implements phonograph.Node. It builds FFT plan for the config.
func (n *Analyzer) Prepare(cfg phonograph.Config) error {
	plan, err := algofft.NewPlan64(n.size)
	if err != nil {
		return fmt.Errorf("analyzer fft plan: %w", err)
	}
	coeffs := n.window.coefficients(n.size)
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	bins := n.size / 2
	a := &analysis{
		sampleRate: cfg.SampleRate,
		plan:       plan,
		coeffs:     coeffs,
		scale:      1 / math.Max(sum, epsilon),
		ring:       make([]float64, n.size),
		frame:      make([]float64, n.size),
		input:      make([]complex128, n.size),
		output:     make([]complex128, n.size),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
		smoothed:   make([]float64, bins),
		published:  make([]float64, bins),
	}
	n.mu.Lock()
	n.state.Store(a)
	n.mu.Unlock()
	return n.Base.Prepare(cfg)
}

// Process implements phonograph.Node.
func (n *Analyzer) Process(in, out signal.Float64, sampleRate float64, blockLength int) {
	PassThrough(in, out, blockLength)
	a := n.state.Load()
	if a == nil || n.Bypassed() || len(in) == 0 {
		return
	}
	for i := 0; i < blockLength; i++ {
		s := in[0][i]
		if len(in) > 1 {
			s = (s + in[1][i]) * 0.5
		}
		a.ring[a.write] = s
		a.write++
		if a.write == len(a.ring) {
			a.write = 0
			n.analyze(a)
		}
	}
}

// analyze is called when ring is full, so it's already in time order.
func (n *Analyzer) analyze(a *analysis) {
	vecmath.MulBlock(a.frame, a.ring, a.coeffs)
	for i, v := range a.frame {
		a.input[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.output, a.input); err != nil {
		return
	}
	for k := range a.re {
		a.re[k] = real(a.output[k])
		a.im[k] = imag(a.output[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	for k, m := range a.mag {
		m *= a.scale
		// one-sided spectrum
		if k > 0 {
			m *= 2
		}
		db := math.Max(MinDB, core.LinearToDB(m))
		if a.frames == 0 {
			a.smoothed[k] = db
			continue
		}
		a.smoothed[k] = spectrumSmoothing*a.smoothed[k] + (1-spectrumSmoothing)*db
	}
	a.frames++

	// reader holds the lock, this frame is skipped
	if !n.mu.TryLock() {
		return
	}
	copy(a.published, a.smoothed)
	a.ready = true
	n.mu.Unlock()
}

// Spectrum returns the latest spectrum. It returns false if no frame was
// analyzed since the latest Prepare.
func (n *Analyzer) Spectrum() (Spectrum, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a := n.state.Load()
	if a == nil || !a.ready {
		return Spectrum{}, false
	}
	s := Spectrum{
		Magnitudes:  append([]float64(nil), a.published...),
		Frequencies: make([]float64, len(a.published)),
		SampleRate:  a.sampleRate,
		FFTSize:     n.size,
	}
	for k := range s.Frequencies {
		s.Frequencies[k] = float64(k) * a.sampleRate / float64(n.size)
	}
	return s, true
}

func nextPowerOfTwo(size int) int {
	if size <= 0 {
		return DefaultFFTSize
	}
	p := 1
	for p < size {
		p <<= 1
	}
	return p
}
