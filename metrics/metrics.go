// Package metrics defines the recorder the library reports events and
// latencies to. The default recorder drops everything.
package metrics

import "time"

// Recorder receives counters and latency observations. The "scope" label
// carries the action, chain, or field the event belongs to.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
