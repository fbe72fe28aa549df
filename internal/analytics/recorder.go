// Package analytics records membrane potential and synapse weight traces
// over a sliding window of simulated time.
package analytics

// Point is one recorded value.
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// ValueRecorder keeps a time series of one quantity. Consecutive equal
// values are stored once.
type ValueRecorder struct {
	points []Point
}

// Push appends value at time t unless it equals the last stored value.
func (r *ValueRecorder) Push(t, value float64) {
	if n := len(r.points); n > 0 && r.points[n-1].Value == value {
		return
	}
	r.points = append(r.points, Point{Time: t, Value: value})
}

// Trim drops points older than window relative to now. Points are kept
// while now-time < window.
func (r *ValueRecorder) Trim(now, window float64) {
	cut := 0
	for cut < len(r.points) && now-r.points[cut].Time >= window {
		cut++
	}
	if cut == 0 {
		return
	}
	r.points = append(r.points[:0], r.points[cut:]...)
}

// Points returns a copy of the stored points in time order.
func (r *ValueRecorder) Points() []Point {
	return append([]Point(nil), r.points...)
}

// Since returns the points with time >= now-span.
func (r *ValueRecorder) Since(now, span float64) []Point {
	var out []Point
	for _, p := range r.points {
		if p.Time >= now-span {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of stored points.
func (r *ValueRecorder) Len() int { return len(r.points) }

// Last returns the most recent point.
func (r *ValueRecorder) Last() (Point, bool) {
	if len(r.points) == 0 {
		return Point{}, false
	}
	return r.points[len(r.points)-1], true
}
