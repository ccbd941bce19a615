package param

import "math"

// EventCapacity is the maximum number of pending events per timeline.
// Storage is allocated once, so scheduling never allocates.
const EventCapacity = 64

// Timeline evaluates automation events. It only moves forward: Value
// must be called with non-decreasing times and events that fully
// elapsed are discarded.
//
// Timeline is owned by the render goroutine and is not safe for
// concurrent use.
type Timeline struct {
	// pending events sorted by time, equal times keep insertion order.
	events []Event

	// value and time at the end of the last elapsed event.
	value float64
	time  float64

	targetActive bool
	target       Event
	targetFrom   float64

	// renderedUntil is the time of the first frame not rendered yet.
	renderedUntil float64
}

// NewTimeline returns a timeline that holds the default value.
func NewTimeline(defaultValue float64) *Timeline {
	return &Timeline{
		events: make([]Event, 0, EventCapacity),
		value:  defaultValue,
	}
}

// Len returns number of pending events.
func (tl *Timeline) Len() int {
	return len(tl.events)
}

// Insert schedules the event. Times in the past are moved to the first
// frame that is not rendered yet, so rendered values never change. A
// ramp that ends in the past turns into SetValue. The event is dropped
// and false is returned if EventCapacity events are already pending.
func (tl *Timeline) Insert(e Event) bool {
	if len(tl.events) == cap(tl.events) {
		return false
	}
	switch e.Kind {
	case LinearRamp, ExponentialRamp:
		if e.Time <= tl.renderedUntil {
			e = Event{Kind: SetValue, Time: tl.renderedUntil, Value: e.Value}
		} else {
			e.from = tl.renderedUntil
		}
	default:
		if e.Time < tl.renderedUntil {
			e.Time = tl.renderedUntil
		}
	}
	i := len(tl.events)
	for i > 0 && tl.events[i-1].Time > e.Time {
		i--
	}
	tl.events = append(tl.events, Event{})
	copy(tl.events[i+1:], tl.events[i:])
	tl.events[i] = e
	return true
}

// Cancel removes all events that start at or after t. The value
// reached at the first frame not rendered yet is held afterwards.
func (tl *Timeline) Cancel(t float64) {
	current := tl.Value(tl.renderedUntil)
	n := 0
	for _, e := range tl.events {
		if e.Time < t {
			tl.events[n] = e
			n++
		}
	}
	for i := n; i < len(tl.events); i++ {
		tl.events[i] = Event{}
	}
	tl.events = tl.events[:n]
	if tl.targetActive {
		if tl.target.Time < t {
			return
		}
		tl.targetActive = false
	}
	tl.value, tl.time = current, tl.renderedUntil
}

// Value returns the automated value at time t.
func (tl *Timeline) Value(t float64) float64 {
	for len(tl.events) > 0 {
		e := &tl.events[0]
		switch e.Kind {
		case SetValue:
			if t < e.Time {
				return tl.held(t)
			}
			tl.targetActive = false
			tl.value, tl.time = e.Value, e.Time
		case SetTarget:
			if t < e.Time {
				return tl.held(t)
			}
			if tl.targetActive {
				tl.value = tl.targetAt(e.Time)
			}
			tl.time = e.Time
			tl.targetActive = true
			tl.target = *e
			tl.targetFrom = tl.value
		case ValueCurve:
			if t < e.Time {
				return tl.held(t)
			}
			tl.closeTarget(e.Time)
			if end := e.end(); t < end {
				return curveAt(e, t)
			}
			tl.value, tl.time = e.Curve[len(e.Curve)-1], e.end()
		case LinearRamp, ExponentialRamp:
			t0 := math.Max(tl.time, e.from)
			if t < t0 {
				return tl.held(t)
			}
			tl.closeTarget(t0)
			tl.time = t0
			if t < e.Time {
				if e.Kind == LinearRamp {
					return linear(tl.value, e.Value, t0, e.Time, t)
				}
				return exponential(tl.value, e.Value, t0, e.Time, t)
			}
			tl.value, tl.time = e.Value, e.Time
		}
		tl.pop()
	}
	return tl.held(t)
}

// Fill writes values for len(dst) frames starting at t0. K-rate
// timelines are evaluated once and the value is broadcast.
func (tl *Timeline) Fill(dst []float64, t0, sampleRate float64, rate Rate) {
	if rate == KRate {
		v := tl.Value(t0)
		for i := range dst {
			dst[i] = v
		}
	} else {
		for i := range dst {
			dst[i] = tl.Value(t0 + float64(i)/sampleRate)
		}
	}
	tl.renderedUntil = t0 + float64(len(dst))/sampleRate
}

// held returns the value when no event is in progress at time t.
func (tl *Timeline) held(t float64) float64 {
	if tl.targetActive {
		return tl.targetAt(t)
	}
	return tl.value
}

func (tl *Timeline) closeTarget(t float64) {
	if !tl.targetActive {
		return
	}
	tl.value = tl.targetAt(t)
	tl.time = t
	tl.targetActive = false
}

func (tl *Timeline) targetAt(t float64) float64 {
	if tl.target.TimeConstant == 0 {
		return tl.target.Value
	}
	return tl.target.Value + (tl.targetFrom-tl.target.Value)*math.Exp(-(t-tl.target.Time)/tl.target.TimeConstant)
}

func (tl *Timeline) pop() {
	copy(tl.events, tl.events[1:])
	tl.events[len(tl.events)-1] = Event{}
	tl.events = tl.events[:len(tl.events)-1]
}

func linear(v0, v1, t0, t1, t float64) float64 {
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

// exponential holds v0 until the end of the ramp if values are zero or
// have different signs.
func exponential(v0, v1, t0, t1, t float64) float64 {
	if v0 == 0 || v1 == 0 || (v0 < 0) != (v1 < 0) {
		return v0
	}
	return v0 * math.Pow(v1/v0, (t-t0)/(t1-t0))
}

func curveAt(e *Event, t float64) float64 {
	last := len(e.Curve) - 1
	pos := (t - e.Time) / e.Duration * float64(last)
	k := int(pos)
	if k >= last {
		return e.Curve[last]
	}
	return e.Curve[k] + (e.Curve[k+1]-e.Curve[k])*(pos-float64(k))
}
