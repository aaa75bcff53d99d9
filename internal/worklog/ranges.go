package worklog

import "worklog/internal/core"

// ResolveRange turns a named approval range into a concrete inclusive
// interval anchored at anchor (normally "today"). Pure and deterministic;
// ranges are recomputed on every use, never stored.
func ResolveRange(r core.ApprovalRange, anchor core.Date) (core.Interval, error) {
	switch r.Kind {
	case core.RangeAll:
		return core.Interval{Unbounded: true}, nil

	case core.RangeWeek:
		return core.Interval{From: anchor.StartOfWeek(), To: anchor.EndOfWeek()}, nil

	case core.RangeMonth:
		m := core.MonthOf(anchor)
		return core.Interval{From: m.Start(), To: m.End()}, nil

	case core.RangeCustom:
		if r.From.IsZero() || r.To.IsZero() {
			return core.Interval{}, core.NewValidationError(core.CodeInvalidRange,
				"custom range requires both endpoints")
		}
		if r.To.Before(r.From) {
			return core.Interval{}, core.NewValidationError(core.CodeInvalidRange,
				"range end %s precedes start %s", r.To, r.From)
		}
		return core.Interval{From: r.From, To: r.To}, nil

	default:
		return core.Interval{}, core.NewValidationError(core.CodeInvalidRange,
			"unknown range kind %q", r.Kind)
	}
}
