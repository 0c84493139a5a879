package feed

import (
	"time"

	"github.com/wonny/factorpool/internal/contracts"
)

// Resampled aggregates incoming bars into buckets of one frequency and
// forwards each completed bucket to its own subscribers
type Resampled struct {
	freq        contracts.Frequency
	current     time.Time
	bucket      map[string]contracts.Bar
	subscribers []Subscriber
	emitted     int
}

// NewResampled creates a resampler for freq
func NewResampled(freq contracts.Frequency) *Resampled {
	return &Resampled{
		freq:   freq,
		bucket: make(map[string]contracts.Bar),
	}
}

// Frequency returns the target frequency
func (r *Resampled) Frequency() contracts.Frequency {
	return r.freq
}

// Subscribe attaches a downstream subscriber
func (r *Resampled) Subscribe(s Subscriber) {
	r.subscribers = append(r.subscribers, s)
}

// Emitted returns how many buckets were forwarded
func (r *Resampled) Emitted() int {
	return r.emitted
}

// BucketStart returns the start of the bucket holding t
func BucketStart(t time.Time, freq contracts.Frequency) time.Time {
	if freq >= contracts.Day {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
	return t.Truncate(freq.Duration())
}

// OnBars implements Subscriber
func (r *Resampled) OnBars(ts time.Time, bars map[string]contracts.Bar) {
	start := BucketStart(ts, r.freq)
	if len(r.bucket) > 0 && start.After(r.current) {
		r.flush()
	}
	r.current = start

	for sym, bar := range bars {
		agg, ok := r.bucket[sym]
		if !ok {
			bar.Time = start
			r.bucket[sym] = bar
			continue
		}
		if bar.High > agg.High {
			agg.High = bar.High
		}
		if bar.Low < agg.Low {
			agg.Low = bar.Low
		}
		agg.Close = bar.Close
		agg.Volume += bar.Volume
		r.bucket[sym] = agg
	}
}

// OnEnd implements Subscriber; the last open bucket is emitted
func (r *Resampled) OnEnd() {
	if len(r.bucket) > 0 {
		r.flush()
	}
	for _, s := range r.subscribers {
		s.OnEnd()
	}
}

func (r *Resampled) flush() {
	out := r.bucket
	r.bucket = make(map[string]contracts.Bar, len(out))
	r.emitted++
	for _, s := range r.subscribers {
		s.OnBars(r.current, out)
	}
}
