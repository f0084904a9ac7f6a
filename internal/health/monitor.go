package health

import (
	"sort"
	"sync"
	"time"
)

// RouteStats aggregates response times of one route, in milliseconds.
type RouteStats struct {
	Count   int   `json:"count"`
	AvgTime int64 `json:"avgTime"`
	MinTime int64 `json:"minTime"`
	MaxTime int64 `json:"maxTime"`
}

type routeTotals struct {
	count int
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// ResponseTimes records per-route latencies. Routes are keyed as
// "METHOD /path/:param" so ids never multiply the key space.
type ResponseTimes struct {
	mu     sync.Mutex
	routes map[string]*routeTotals
}

func NewResponseTimes() *ResponseTimes {
	return &ResponseTimes{routes: make(map[string]*routeTotals)}
}

func (r *ResponseTimes) Record(route string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.routes[route]
	if !ok {
		t = &routeTotals{min: d, max: d}
		r.routes[route] = t
	}
	t.count++
	t.total += d
	if d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
}

func (r *ResponseTimes) Snapshot() map[string]RouteStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]RouteStats, len(r.routes))
	for route, t := range r.routes {
		out[route] = RouteStats{
			Count:   t.count,
			AvgTime: (t.total / time.Duration(t.count)).Milliseconds(),
			MinTime: t.min.Milliseconds(),
			MaxTime: t.max.Milliseconds(),
		}
	}
	return out
}

// Routes returns the recorded route keys in order.
func (r *ResponseTimes) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := make([]string, 0, len(r.routes))
	for route := range r.routes {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

func (r *ResponseTimes) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = make(map[string]*routeTotals)
}

const maxRecordedErrors = 1000

type RecordedError struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Route     string    `json:"route,omitempty"`
}

type ErrorRateReport struct {
	Count  int             `json:"count"`
	Rate   float64         `json:"rate"`
	Recent []RecordedError `json:"recent"`
}

// ErrorRate keeps the last 1000 server errors.
type ErrorRate struct {
	mu     sync.Mutex
	errors []RecordedError
	now    func() time.Time
}

func NewErrorRate(now func() time.Time) *ErrorRate {
	if now == nil {
		now = time.Now
	}
	return &ErrorRate{now: now}
}

func (e *ErrorRate) Record(message, route string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, RecordedError{Timestamp: e.now(), Message: message, Route: route})
	if len(e.errors) > maxRecordedErrors {
		e.errors = e.errors[len(e.errors)-maxRecordedErrors:]
	}
}

// Report counts errors newer than window and returns the last ten of them.
// Rate is errors per second over the window.
func (e *ErrorRate) Report(window time.Duration) ErrorRateReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-window)
	recent := []RecordedError{}
	for _, r := range e.errors {
		if r.Timestamp.After(cutoff) {
			recent = append(recent, r)
		}
	}

	report := ErrorRateReport{Count: len(recent)}
	if window > 0 {
		report.Rate = float64(len(recent)) / window.Seconds()
	}
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	report.Recent = recent
	return report
}
