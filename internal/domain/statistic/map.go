package statistic

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
)

const defaultStripes = 16

// Key addresses one pool of an evaluation. Threshold is the declared threshold,
// not the value it resolved to.
type Key struct {
	Window    timewindow.TimeWindow
	Threshold threshold.Threshold
}

// String renders the key, e.g. for logs.
func (k Key) String() string {
	return k.Window.String() + " " + k.Threshold.String()
}

// Failure records a metric that could not be computed for a key.
type Failure struct {
	Key    Key
	Metric metric.ID
	Err    error
}

type entry struct {
	stats  map[metric.ID]Statistic
	states map[metric.ID]State
	failed map[metric.ID]error
}

func newEntry() *entry {
	return &entry{
		stats:  make(map[metric.ID]Statistic),
		states: make(map[metric.ID]State),
		failed: make(map[metric.ID]error),
	}
}

type stripe struct {
	mu      sync.Mutex
	entries map[Key]*entry
}

// Map aggregates statistics by key and metric. It is safe for concurrent use;
// keys are spread over lock stripes so unrelated keys do not contend.
type Map struct {
	stripes []*stripe
}

// MapOption configures a Map.
type MapOption func(*Map)

// WithStripes sets the number of lock stripes.
func WithStripes(n int) MapOption {
	return func(m *Map) {
		if n > 0 {
			m.stripes = make([]*stripe, n)
		}
	}
}

// NewMap returns an empty map.
func NewMap(opts ...MapOption) *Map {
	m := &Map{stripes: make([]*stripe, defaultStripes)}
	for _, opt := range opts {
		opt(m)
	}
	for i := range m.stripes {
		m.stripes[i] = &stripe{entries: make(map[Key]*entry)}
	}
	return m
}

func (m *Map) lock(k Key) (*stripe, *entry) {
	s := m.stripes[xxhash.Sum64String(k.String())%uint64(len(m.stripes))]
	s.mu.Lock()
	e, ok := s.entries[k]
	if !ok {
		e = newEntry()
		s.entries[k] = e
	}
	return s, e
}

// Put stores a final statistic. Storing a second one for the same key and metric fails.
func (m *Map) Put(k Key, s Statistic) error {
	st, e := m.lock(k)
	defer st.mu.Unlock()
	id := s.Metadata().Metric
	if _, ok := e.stats[id]; ok {
		return fmt.Errorf("%w: %s for %s", ErrDuplicateStatistic, id, k)
	}
	e.stats[id] = s
	return nil
}

// Merge folds a partial state into the state held for the key and metric.
func (m *Map) Merge(k Key, id metric.ID, s State) error {
	st, e := m.lock(k)
	defer st.mu.Unlock()
	cur, ok := e.states[id]
	if !ok {
		e.states[id] = s
		return nil
	}
	merged, err := cur.Merge(s)
	if err != nil {
		return fmt.Errorf("merge %s for %s: %w", id, k, err)
	}
	e.states[id] = merged
	return nil
}

// Fail records that a metric failed for a key. The first failure is kept.
func (m *Map) Fail(k Key, id metric.ID, err error) {
	st, e := m.lock(k)
	defer st.mu.Unlock()
	if _, ok := e.failed[id]; !ok {
		e.failed[id] = err
	}
}

// FinishFunc turns a merged state into a statistic.
type FinishFunc func(id metric.ID, s State) (Statistic, error)

// Results snapshots the map. Merged states are finished with finish; a finish
// error, or a failure recorded for the metric, becomes a Failure. Metrics that
// failed in any batch are reported as failed rather than with a partial value.
func (m *Map) Results(finish FinishFunc) *Results {
	r := &Results{byKey: make(map[Key]map[metric.ID]Statistic)}
	for _, s := range m.stripes {
		s.mu.Lock()
		for k, e := range s.entries {
			out := make(map[metric.ID]Statistic, len(e.stats)+len(e.states))
			for id, st := range e.stats {
				out[id] = st
			}
			for id, state := range e.states {
				if _, failed := e.failed[id]; failed {
					continue
				}
				st, err := finish(id, state)
				if err != nil {
					r.failures = append(r.failures, Failure{Key: k, Metric: id, Err: err})
					continue
				}
				out[id] = st
			}
			for id, err := range e.failed {
				delete(out, id)
				r.failures = append(r.failures, Failure{Key: k, Metric: id, Err: err})
			}
			if len(out) > 0 {
				r.byKey[k] = out
			}
		}
		s.mu.Unlock()
	}
	r.keys = make([]Key, 0, len(r.byKey))
	for k := range r.byKey {
		r.keys = append(r.keys, k)
	}
	sort.Slice(r.keys, func(i, j int) bool { return keyLess(r.keys[i], r.keys[j]) })
	sort.Slice(r.failures, func(i, j int) bool {
		a, b := r.failures[i], r.failures[j]
		if a.Key != b.Key {
			return keyLess(a.Key, b.Key)
		}
		return a.Metric < b.Metric
	})
	return r
}

func keyLess(a, b Key) bool {
	wa, wb := a.Window, b.Window
	switch {
	case !wa.EarliestTime.Equal(wb.EarliestTime):
		return wa.EarliestTime.Before(wb.EarliestTime)
	case !wa.LatestTime.Equal(wb.LatestTime):
		return wa.LatestTime.Before(wb.LatestTime)
	case wa.EarliestLead != wb.EarliestLead:
		return wa.EarliestLead < wb.EarliestLead
	case wa.LatestLead != wb.LatestLead:
		return wa.LatestLead < wb.LatestLead
	}
	ta, tb := a.Threshold, b.Threshold
	if ta.IsAllData() != tb.IsAllData() {
		return ta.IsAllData()
	}
	if ta.IsProbability != tb.IsProbability {
		return !ta.IsProbability
	}
	va, vb := ta.Value, tb.Value
	if ta.IsProbability {
		va, vb = ta.Probability, tb.Probability
	}
	if va != vb {
		return va < vb
	}
	return ta.String() < tb.String()
}

// Results is an immutable snapshot of an aggregation map.
type Results struct {
	keys     []Key
	byKey    map[Key]map[metric.ID]Statistic
	failures []Failure
}

// Keys returns the keys with at least one statistic, ordered by window then threshold.
func (r *Results) Keys() []Key { return append([]Key(nil), r.keys...) }

// Get returns the statistics of a key, ordered by metric id.
func (r *Results) Get(k Key) []Statistic {
	m := r.byKey[k]
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	out := make([]Statistic, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[metric.ID(id)])
	}
	return out
}

// Statistic returns one statistic.
func (r *Results) Statistic(k Key, id metric.ID) (Statistic, bool) {
	s, ok := r.byKey[k][id]
	return s, ok
}

// Failures returns the recorded failures in key order.
func (r *Results) Failures() []Failure { return append([]Failure(nil), r.failures...) }

// Len returns the number of statistics held.
func (r *Results) Len() int {
	n := 0
	for _, m := range r.byKey {
		n += len(m)
	}
	return n
}
