package core

const (
	RangeAll    RangeKind = "all"
	RangeWeek   RangeKind = "week"
	RangeMonth  RangeKind = "month"
	RangeCustom RangeKind = "custom"
)

type (
	// RangeKind names one of the four approval range selectors.
	RangeKind string

	// ApprovalRange is a tagged value scoping a batch approve/reject. From and
	// To are meaningful only when Kind == RangeCustom. Ranges are never
	// stored; they are resolved against "now" on every use.
	ApprovalRange struct {
		Kind RangeKind
		From Date
		To   Date
	}

	// Interval is a resolved, inclusive date interval. Unbounded means no
	// date constraint at all (the RangeAll case).
	Interval struct {
		From      Date
		To        Date
		Unbounded bool
	}
)

// IsValid reports whether k is one of the four range kinds.
func (k RangeKind) IsValid() bool {
	switch k {
	case RangeAll, RangeWeek, RangeMonth, RangeCustom:
		return true
	}
	return false
}

// All returns the unbounded range.
func All() ApprovalRange { return ApprovalRange{Kind: RangeAll} }

// Week returns the current-week range.
func Week() ApprovalRange { return ApprovalRange{Kind: RangeWeek} }

// CurrentMonth returns the current-month range.
func CurrentMonth() ApprovalRange { return ApprovalRange{Kind: RangeMonth} }

// Custom returns an explicit from/to range.
func Custom(from, to Date) ApprovalRange {
	return ApprovalRange{Kind: RangeCustom, From: from, To: to}
}

// Contains reports whether d falls inside the interval.
func (i Interval) Contains(d Date) bool {
	if i.Unbounded {
		return true
	}
	return !d.Before(i.From) && !d.After(i.To)
}
