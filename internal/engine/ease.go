package engine

import "time"

type EaseKind string

const (
	EaseLinear   EaseKind = "linear"
	EaseIn       EaseKind = "easeIn"
	EaseOut      EaseKind = "easeOut"
	EaseInOut    EaseKind = "easeInOut"
	EaseBackOut  EaseKind = "backOut"
	EaseCubicOut EaseKind = "cubicOut"
)

// Ease maps linear progress t in [0,1] through the named curve. Values of t
// outside the range are clamped first.
func Ease(kind EaseKind, t float64) float64 {
	t = max(0, min(1, t))

	switch kind {
	case EaseIn:
		return t * t

	case EaseOut:
		return t * (2 - t)

	case EaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t

	case EaseCubicOut:
		t2 := 1 - t
		return 1 - t2*t2*t2

	case EaseBackOut:
		c1 := 1.70158
		c3 := c1 + 1
		t2 := t - 1
		return 1 + c3*t2*t2*t2 + c1*t2*t2

	default:
		return t
	}
}

// Lerp interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

const (
	popInDuration = 250 * time.Millisecond
	popInFrom     = 0.6
)

// popIn tracks decals that were just added so they can grow into place.
// It only ever affects rendering.
type popIn struct {
	started map[string]time.Time
	now     time.Time
}

func (p *popIn) start(id string) {
	if p.now.IsZero() {
		return
	}
	if p.started == nil {
		p.started = make(map[string]time.Time)
	}
	p.started[id] = p.now
}

// tick advances the clock and reports whether any animation is still running.
func (p *popIn) tick(now time.Time) bool {
	p.now = now
	for id, at := range p.started {
		if now.Sub(at) >= popInDuration {
			delete(p.started, id)
		}
	}
	return len(p.started) > 0
}

// factor returns the scale and opacity multipliers for id.
func (p *popIn) factor(id string) (scale, opacity float64) {
	at, ok := p.started[id]
	if !ok {
		return 1, 1
	}
	t := float64(p.now.Sub(at)) / float64(popInDuration)
	return Lerp(popInFrom, 1, Ease(EaseBackOut, t)), Ease(EaseOut, t)
}

func (p *popIn) forget(id string) {
	delete(p.started, id)
}
