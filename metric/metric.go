// Package metric publishes render counters with expvar. Counters are
// grouped per component type, so all instances of the same component
// share them.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"pipelined.dev/webaudio/signal"
)

const componentsLabel = "webaudio.components"

const (
	// QuantumCounter measures number of rendered quanta.
	QuantumCounter = "Quanta"
	// SampleCounter measures number of rendered frames.
	SampleCounter = "Samples"
	// LatencyCounter measures time between two render calls.
	LatencyCounter = "Latency"
	// DurationCounter measures duration of rendered signal.
	DurationCounter = "Duration"
	// ComponentCounter counts number of component instances.
	ComponentCounter = "Components"
	// UnderrunCounter counts quanta substituted with silence.
	UnderrunCounter = "Underruns"
	// OverrunCounter counts frames dropped because a queue was full.
	OverrunCounter = "Overruns"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		QuantumCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
		ComponentCounter,
		UnderrunCounter,
		OverrunCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until component is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when a quantum is rendered.
type MeasureFunc func(frames int64)

// Meter creates new meter closure to capture component counters.
func Meter(component interface{}, sampleRate float64) ResetFunc {
	t := getType(component)
	metric := components.get(t)
	metric.components.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			frames        int64
			frameDuration time.Duration
		)
		return func(s int64) {
			metric.latency.set(time.Since(calledAt))
			metric.quanta.Add(1)
			metric.samples.Add(s)
			// recalculate duration only when number of frames has changed
			if frames != s {
				frames = s
				frameDuration = signal.DurationOf(sampleRate, s)
			}
			metric.duration.add(frameDuration)
			calledAt = time.Now()
		}
	}
}

// Faults counts real-time faults of a component. Methods are safe to
// call from the render goroutine and hardware callbacks.
type Faults struct {
	underruns *expvar.Int
	overruns  *expvar.Int
}

// FaultsOf returns fault counters for provided component type.
func FaultsOf(component interface{}) Faults {
	metric := components.get(getType(component))
	return Faults{
		underruns: metric.underruns,
		overruns:  metric.overruns,
	}
}

// Underrun increments underrun counter. Zero Faults is a no-op.
func (f Faults) Underrun() {
	if f.underruns != nil {
		f.underruns.Add(1)
	}
}

// Overrun increments overrun counter. Zero Faults is a no-op.
func (f Faults) Overrun() {
	if f.overruns != nil {
		f.overruns.Add(1)
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		return metric
	}
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	components *expvar.Int
	quanta     *expvar.Int
	samples    *expvar.Int
	underruns  *expvar.Int
	overruns   *expvar.Int
	latency    *duration
	duration   *duration
}

func newMetric(componentType string) metric {
	m := metric{
		components: expvar.NewInt(key(componentType, ComponentCounter)),
		quanta:     expvar.NewInt(key(componentType, QuantumCounter)),
		samples:    expvar.NewInt(key(componentType, SampleCounter)),
		underruns:  expvar.NewInt(key(componentType, UnderrunCounter)),
		overruns:   expvar.NewInt(key(componentType, OverrunCounter)),
		latency:    &duration{},
		duration:   &duration{},
	}
	expvar.Publish(key(componentType, LatencyCounter), m.latency)
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
