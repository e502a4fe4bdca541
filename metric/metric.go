// Package metric captures processing counters of graph components and
// publishes them with expvar.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/phonograph/signal"
)

const componentsLabel = "phonograph.components"

const (
	// BlockCounter measures number of processed blocks.
	BlockCounter = "Blocks"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// LatencyCounter measures latency between processing calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// ComponentCounter counts number of measured component instances.
	ComponentCounter = "Components"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
		ComponentCounter,
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

// MeasureFunc captures metrics when block is processed. It doesn't
// allocate, so it's safe to call on real-time goroutine.
type MeasureFunc func(blockLength int64)

// Meter creates new meter closure to capture component counters.
func Meter(component interface{}, sampleRate int) MeasureFunc {
	t := getType(component)
	metric := components.get(t)
	metric.components.Add(1)
	calledAt := time.Now()
	var (
		blockLength   int64
		blockDuration time.Duration
	)
	return func(s int64) {
		metric.latency.set(time.Since(calledAt))
		metric.blocks.Add(1)
		metric.samples.Add(s)
		// recalculate block duration only when block length has changed
		if blockLength != s {
			blockLength = s
			blockDuration = signal.DurationOf(sampleRate, s)
		}
		metric.duration.add(blockDuration)
		calledAt = time.Now()
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
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	key        string
	components *expvar.Int
	blocks     *expvar.Int
	samples    *expvar.Int
	latency    *duration
	duration   *duration
}

func newMetric(componentType string) metric {
	m := metric{
		key:        componentType,
		components: expvar.NewInt(key(componentType, ComponentCounter)),
		blocks:     expvar.NewInt(key(componentType, BlockCounter)),
		samples:    expvar.NewInt(key(componentType, SampleCounter)),
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
