package grade

import (
	"fmt"
	"math"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/timeline"
)

// Scoring weights and thresholds of the fuzzy sequence comparison.
const (
	DefaultToleranceMs = 50
	// Targets with near-simultaneous events get a widened interval
	// tolerance to absorb scheduler jitter.
	nearSimultaneousMs  = 10
	widenedToleranceMs  = 100
	pwmToleranceRaw     = 25 // on the 0-255 scale, roughly 10%
	passThresholdScore  = 80
	weightInterval      = 0.40
	weightPin           = 0.25
	weightState         = 0.25
	weightPWM           = 0.10
)

type DifferenceType string

const (
	DiffLengthMismatch   DifferenceType = "length_mismatch"
	DiffPinMismatch      DifferenceType = "pin_mismatch"
	DiffStateMismatch    DifferenceType = "state_mismatch"
	DiffPWMMismatch      DifferenceType = "pwm_mismatch"
	DiffIntervalMismatch DifferenceType = "interval_mismatch"
)

// Difference is one machine-readable mismatch, with a learner-facing
// message attached. Presentation stays with the caller.
type Difference struct {
	Type    DifferenceType `json:"type"`
	Index   int            `json:"index"`
	Pin     int            `json:"pin,omitempty"`
	Message string         `json:"message"`
}

type Details struct {
	IntervalMatches  int `json:"interval_matches"`
	PinMatches       int `json:"pin_matches"`
	StateMatches     int `json:"state_matches"`
	PWMMatches       int `json:"pwm_matches"`
	TotalComparisons int `json:"total_comparisons"`
}

type Result struct {
	Matches     bool         `json:"matches"`
	Score       int          `json:"score"` // 0-100
	Differences []Difference `json:"differences"`
	Details     Details      `json:"details"`
}

// Validator compares a recorded timeline against a target timeline under
// timing tolerance. It is pure and carries no per-call state, so a single
// instance may be used repeatedly, e.g. once per completed loop pass.
type Validator struct {
	toleranceMs int64
}

func NewValidator(toleranceMs int64) *Validator {
	if toleranceMs <= 0 {
		toleranceMs = DefaultToleranceMs
	}
	return &Validator{toleranceMs: toleranceMs}
}

// Validate scores candidate against target. Only relative timing is
// judged: both sequences are first shifted so their first event is at
// t=0, eliminating any fixed startup offset. A length mismatch grades
// the overlapping prefix for partial credit but always fails.
func (v *Validator) Validate(target, candidate *timeline.Sequence) Result {
	tgt := normalize(target.Events)
	cand := normalize(candidate.Events)

	if len(tgt) == 0 && len(cand) == 0 {
		return Result{Matches: true, Score: 100}
	}
	if len(tgt) == 0 || len(cand) == 0 {
		return Result{
			Score: 0,
			Differences: []Difference{{
				Type:  DiffLengthMismatch,
				Index: 0,
				Message: fmt.Sprintf("expected %d pin events, observed %d",
					len(tgt), len(cand)),
			}},
		}
	}

	res := Result{}
	lengthsMatch := len(tgt) == len(cand)
	if !lengthsMatch {
		res.Differences = append(res.Differences, Difference{
			Type:  DiffLengthMismatch,
			Index: 0,
			Message: fmt.Sprintf("expected %d pin events, observed %d",
				len(tgt), len(cand)),
		})
	}

	n := len(tgt)
	if len(cand) < n {
		n = len(cand)
	}
	res.Details.TotalComparisons = n

	for i := 0; i < n; i++ {
		te, ce := tgt[i], cand[i]

		if te.Pin == ce.Pin {
			res.Details.PinMatches++
		} else {
			res.Differences = append(res.Differences, Difference{
				Type:  DiffPinMismatch,
				Index: i,
				Pin:   te.Pin,
				Message: fmt.Sprintf("event %d: expected pin %d, observed pin %d",
					i, te.Pin, ce.Pin),
			})
		}

		if te.On == ce.On {
			res.Details.StateMatches++
		} else {
			res.Differences = append(res.Differences, Difference{
				Type:  DiffStateMismatch,
				Index: i,
				Pin:   te.Pin,
				Message: fmt.Sprintf("event %d: pin %d expected %s, observed %s",
					i, te.Pin, onOff(te.On), onOff(ce.On)),
			})
		}

		if pwmMatches(te, ce) {
			res.Details.PWMMatches++
		} else {
			res.Differences = append(res.Differences, Difference{
				Type:  DiffPWMMismatch,
				Index: i,
				Pin:   te.Pin,
				Message: fmt.Sprintf("event %d: pin %d duty cycle %d%% too far from expected %d%%",
					i, te.Pin, duty(ce), duty(te)),
			})
		}

		if ok, want, got := v.intervalMatches(tgt, cand, i, n); ok {
			res.Details.IntervalMatches++
		} else {
			res.Differences = append(res.Differences, Difference{
				Type:  DiffIntervalMismatch,
				Index: i,
				Pin:   te.Pin,
				Message: fmt.Sprintf("event %d: expected the next event after %d ms, observed %d ms",
					i, want, got),
			})
		}
	}

	res.Score = score(res.Details)
	res.Matches = lengthsMatch && res.Score >= passThresholdScore
	return res
}

// normalize shifts event times so the first event sits at t=0.
func normalize(events []timeline.Event) []timeline.Event {
	if len(events) == 0 {
		return nil
	}
	base := events[0].TimeMs
	out := make([]timeline.Event, len(events))
	for i, ev := range events {
		ev.TimeMs -= base
		out[i] = ev
	}
	return out
}

// pwmMatches compares duty cycles of PWM event pairs within an absolute
// tolerance on the raw 0-255 scale. Pairs that are not both PWM count as
// trivially matched for this category.
func pwmMatches(te, ce timeline.Event) bool {
	if te.Kind != interp.KindPWM || ce.Kind != interp.KindPWM {
		return true
	}
	diff := raw255(duty(te)) - raw255(duty(ce))
	if diff < 0 {
		diff = -diff
	}
	return diff <= pwmToleranceRaw
}

// intervalMatches compares the gap to the next event between target and
// candidate. The final aligned pair has no next interval and counts as
// matched.
func (v *Validator) intervalMatches(tgt, cand []timeline.Event, i, n int) (ok bool, want, got int64) {
	if i+1 >= n {
		return true, 0, 0
	}
	want = tgt[i+1].TimeMs - tgt[i].TimeMs
	got = cand[i+1].TimeMs - cand[i].TimeMs

	tol := v.toleranceMs
	if want < nearSimultaneousMs {
		tol = widenedToleranceMs
	}

	diff := want - got
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol, want, got
}

func score(d Details) int {
	if d.TotalComparisons == 0 {
		return 0
	}
	total := float64(d.TotalComparisons)
	weighted := weightInterval*float64(d.IntervalMatches)/total +
		weightPin*float64(d.PinMatches)/total +
		weightState*float64(d.StateMatches)/total +
		weightPWM*float64(d.PWMMatches)/total
	return int(math.Round(weighted * 100))
}

func duty(ev timeline.Event) int {
	if ev.DutyPercent == nil {
		return 0
	}
	return *ev.DutyPercent
}

func raw255(percent int) int {
	return int(math.Round(float64(percent) * 255 / 100))
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
