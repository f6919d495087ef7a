// Package detector turns a noisy 3-axis acceleration stream into discrete,
// geolocated candidate events. It maintains a calibration baseline (the
// device's resting gravity vector), a short rolling magnitude buffer, and a
// cooldown so one physical bump produces one event.
package detector

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/roadpulse/roadpulse-backend-go/internal/models"
)

// Defaults
const (
	DefaultSensitivity        = 2.5
	DefaultCooldown           = 3 * time.Second
	DefaultBufferSize         = 20
	DefaultCalibrationSamples = 50
	DefaultCalibrationTimeout = 5 * time.Second
	MinCalibrationSamples     = 10

	// A spike must exceed this multiple of the recent local mean, which
	// rejects sustained vibration (rough road) and accepts sharp transients.
	transientRatio = 1.5
	localMeanSpan  = 5
)

// PositionProvider supplies the most recent known position. Current must be
// non-blocking and cheap; it is called from inside the sample handler.
type PositionProvider interface {
	Current() (models.Position, bool)
}

// Config tunes a Detector. Zero values fall back to the defaults above.
type Config struct {
	Sensitivity        float64
	Cooldown           time.Duration
	BufferSize         int
	CalibrationSamples int
	CalibrationTimeout time.Duration

	// SensorAvailable gates detection entirely; platforms without motion
	// permission set it false and the detector stays idle.
	SensorAvailable bool

	Clock clockwork.Clock
}

// Detector consumes motion samples and emits candidate events through the
// configured hook. Samples for one device arrive on a single logical timeline;
// the mutex only guards against concurrent tuning/recalibration.
type Detector struct {
	mu sync.Mutex

	clock     clockwork.Clock
	positions PositionProvider
	onEvent   func(models.CandidateEvent)

	sensitivity float64
	cooldown    time.Duration
	available   bool

	baseline     models.Baseline
	isCalibrated bool
	incomplete   bool

	calibrating  bool
	calSamples   []models.MotionSample
	calTarget    int
	calTimeout   time.Duration
	calTimer     clockwork.Timer

	buffer  []float64
	bufCap  int
	lastHit time.Time
	hasHit  bool
}

// New creates a detector. onEvent receives every confirmed candidate event;
// it must not block.
func New(cfg Config, positions PositionProvider, onEvent func(models.CandidateEvent)) *Detector {
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = DefaultSensitivity
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.CalibrationSamples <= 0 {
		cfg.CalibrationSamples = DefaultCalibrationSamples
	}
	if cfg.CalibrationTimeout <= 0 {
		cfg.CalibrationTimeout = DefaultCalibrationTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Detector{
		clock:       cfg.Clock,
		positions:   positions,
		onEvent:     onEvent,
		sensitivity: cfg.Sensitivity,
		cooldown:    cfg.Cooldown,
		available:   cfg.SensorAvailable,
		bufCap:      cfg.BufferSize,
		calTarget:   cfg.CalibrationSamples,
		calTimeout:  cfg.CalibrationTimeout,
		buffer:      make([]float64, 0, cfg.BufferSize),
	}
}

// SetSensitivity adjusts the detection threshold at any time without
// resetting calibration or buffer state.
func (d *Detector) SetSensitivity(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v > 0 {
		d.sensitivity = v
	}
}

// Sensitivity returns the current detection threshold.
func (d *Detector) Sensitivity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sensitivity
}

// IsCalibrated reports whether a baseline has been committed.
func (d *Detector) IsCalibrated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isCalibrated
}

// CalibrationIncomplete reports whether the committed baseline was built from
// fewer samples than wanted. Degraded, not fatal: detection still runs.
func (d *Detector) CalibrationIncomplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.incomplete
}

// Baseline returns the current resting acceleration vector.
func (d *Detector) Baseline() models.Baseline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseline
}

// Calibrate begins (or restarts) baseline calibration. Incoming samples are
// collected until the target count is reached or the timeout fires, whichever
// comes first; the baseline is then the componentwise mean of what was
// collected. Detection against the previous baseline continues until the swap.
func (d *Detector) Calibrate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.calTimer != nil {
		d.calTimer.Stop()
	}
	d.calibrating = true
	d.calSamples = d.calSamples[:0]

	// Commit whatever was collected if the sample stream stalls
	d.calTimer = d.clock.AfterFunc(d.calTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.calibrating {
			// Already fired; clear so commit does not try to stop it
			d.calTimer = nil
			d.commitBaselineLocked()
		}
	})
}

// commitBaselineLocked swaps in a baseline from the collected samples.
// Fails soft: too few samples degrades quality but never refuses to operate.
func (d *Detector) commitBaselineLocked() {
	n := len(d.calSamples)
	var b models.Baseline
	if n > 0 {
		for _, s := range d.calSamples {
			b.X += s.X
			b.Y += s.Y
			b.Z += s.Z
		}
		b.X /= float64(n)
		b.Y /= float64(n)
		b.Z /= float64(n)
	}

	d.baseline = b
	d.isCalibrated = true
	d.incomplete = n < MinCalibrationSamples
	d.calibrating = false
	d.calSamples = nil
	if d.calTimer != nil {
		d.calTimer.Stop()
		d.calTimer = nil
	}

	if d.incomplete {
		log.Printf("[Detector] Calibration incomplete: committed baseline from %d samples", n)
	} else {
		log.Printf("[Detector] Calibrated from %d samples: (%.3f, %.3f, %.3f)", n, b.X, b.Y, b.Z)
	}
}

// OnSample handles one motion sample. It is cheap and non-blocking: the only
// external call is the cached position lookup at confirmation time.
func (d *Detector) OnSample(s models.MotionSample) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.available {
		return
	}

	if d.calibrating {
		d.calSamples = append(d.calSamples, s)
		if len(d.calSamples) >= d.calTarget {
			d.commitBaselineLocked()
		}
		return
	}
	if !d.isCalibrated {
		return
	}

	dx := s.X - d.baseline.X
	dy := s.Y - d.baseline.Y
	dz := s.Z - d.baseline.Z
	magnitude := math.Sqrt(dx*dx + dy*dy + dz*dz)

	// Background level from the samples preceding this one; taking it before
	// the append keeps a spike out of its own comparison mean.
	localMean := d.localMeanLocked()

	if len(d.buffer) == d.bufCap {
		d.buffer = d.buffer[1:]
	}
	d.buffer = append(d.buffer, magnitude)

	if magnitude <= d.sensitivity {
		return
	}
	now := d.clock.Now()
	if d.hasHit && now.Sub(d.lastHit) < d.cooldown {
		return
	}

	// Secondary validation against the recent background
	if magnitude <= transientRatio*localMean {
		return
	}

	pos, ok := d.positions.Current()
	if !ok {
		// Position is a point-in-time requirement; no fix means no event
		return
	}

	d.lastHit = now
	d.hasHit = true

	event := models.CandidateEvent{
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		Intensity:  intensityFromMagnitude(magnitude),
		Confidence: confidenceFromMagnitude(magnitude),
		CapturedAt: s.CapturedAt,
	}
	if d.onEvent != nil {
		d.onEvent(event)
	}
}

func (d *Detector) localMeanLocked() float64 {
	n := len(d.buffer)
	if n == 0 {
		return 0
	}
	span := localMeanSpan
	if n < span {
		span = n
	}
	sum := 0.0
	for _, m := range d.buffer[n-span:] {
		sum += m
	}
	return sum / float64(span)
}

func intensityFromMagnitude(m float64) int {
	i := int(math.Round(m))
	if i < 0 {
		i = 0
	}
	if i > 10 {
		i = 10
	}
	return i
}

func confidenceFromMagnitude(m float64) int {
	c := m / 10
	if c > 1 {
		c = 1
	}
	return int(math.Round(c * 100))
}
