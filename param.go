package webaudio

import (
	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
	"pipelined.dev/webaudio/param"
)

// Param is the control-side handle of a node param. Scheduling methods
// validate arguments and queue the event, the timeline itself is owned
// by the render goroutine.
type Param struct {
	ctx       *Context
	id        graph.NodeID
	owner     *Node
	processor *param.Processor
}

// ID returns the id of the param node.
func (p *Param) ID() graph.NodeID {
	return p.id
}

// Descriptor returns param bounds.
func (p *Param) Descriptor() param.Descriptor {
	return p.processor.Descriptor()
}

// Value returns the last rendered value.
func (p *Param) Value() float64 {
	return p.processor.Value()
}

// SetValue sets value at the current time.
func (p *Param) SetValue(value float64) error {
	return p.schedule("set value", param.Event{Kind: param.SetValue, Time: p.ctx.CurrentTime(), Value: value})
}

// SetValueAtTime holds value from time t.
func (p *Param) SetValueAtTime(value, t float64) error {
	return p.schedule("set value at time", param.Event{Kind: param.SetValue, Time: t, Value: value})
}

// LinearRampToValueAtTime ramps linearly from the previous value to
// value at time t.
func (p *Param) LinearRampToValueAtTime(value, t float64) error {
	return p.schedule("linear ramp", param.Event{Kind: param.LinearRamp, Time: t, Value: value})
}

// ExponentialRampToValueAtTime ramps exponentially from the previous
// value to value at time t. If either value is zero or they have
// different signs, the previous value is held until t.
func (p *Param) ExponentialRampToValueAtTime(value, t float64) error {
	return p.schedule("exponential ramp", param.Event{Kind: param.ExponentialRamp, Time: t, Value: value})
}

// SetTargetAtTime approaches target from time t with the time constant.
func (p *Param) SetTargetAtTime(target, t, timeConstant float64) error {
	return p.schedule("set target", param.Event{Kind: param.SetTarget, Time: t, Value: target, TimeConstant: timeConstant})
}

// SetValueCurveAtTime resamples curve over [t, t+duration]. The curve is
// copied.
func (p *Param) SetValueCurveAtTime(curve []float64, t, duration float64) error {
	return p.schedule("set value curve", param.Event{
		Kind:     param.ValueCurve,
		Time:     t,
		Duration: duration,
		Curve:    append([]float64(nil), curve...),
	})
}

// CancelScheduledValues removes events scheduled at or after time t.
func (p *Param) CancelScheduledValues(t float64) error {
	if err := (param.Event{Kind: param.SetValue, Time: t}).Validate(); err != nil {
		return configurationError("cancel scheduled values", err)
	}
	if err := p.ctx.live("cancel scheduled values", p.id); err != nil {
		return err
	}
	return p.ctx.send(bridge.Message{Kind: bridge.CancelAutomation, ID: p.id, Time: t})
}

func (p *Param) schedule(op string, e param.Event) error {
	if err := e.Validate(); err != nil {
		return configurationError(op, err)
	}
	if err := p.ctx.live(op, p.id); err != nil {
		return err
	}
	return p.ctx.send(bridge.Message{Kind: bridge.Automation, ID: p.id, Event: e})
}
