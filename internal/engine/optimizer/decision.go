package optimizer

import "fmt"

// Kind is the transformation a decision settled on.
type Kind string

const (
	KindNone       Kind = "none"
	KindNarrow     Kind = "narrow"
	KindSpecialize Kind = "specialize"
)

// Decision describes what one update event led to. It is computed per event
// and never stored.
type Decision struct {
	Kind    Kind
	Table   string
	Column  string
	Type    string
	Applied bool
	Reason  string
}

// Reasons for decisions that changed nothing.
const (
	ReasonNoFields       = "no optimizable fields"
	ReasonTableFiltered  = "table excluded"
	ReasonThrottled      = "rate limited"
	ReasonUnknownColumn  = "not a column of the table"
	ReasonAlreadyOptimal = "already optimal"
	ReasonSpecified      = "declared type is specified"
	ReasonNullValue      = "null value"
	ReasonNoPattern      = "no pattern matches"
	ReasonUnsafe         = "stored values do not fit"
	ReasonCoverage       = "not every row matches"
	ReasonAborted        = "aborted"
)

func (d Decision) String() string {
	reason := ""
	if d.Reason != "" {
		reason = " (" + d.Reason + ")"
	}
	switch {
	case d.Kind == KindNone:
		if d.Column == "" {
			return fmt.Sprintf("%s: no action%s", d.Table, reason)
		}
		return fmt.Sprintf("%s.%s: no action%s", d.Table, d.Column, reason)
	case d.Applied:
		return fmt.Sprintf("%s.%s: %s to %s applied", d.Table, d.Column, d.Kind, d.Type)
	default:
		return fmt.Sprintf("%s.%s: %s to %s not applied%s", d.Table, d.Column, d.Kind, d.Type, reason)
	}
}

func (d Decision) outcome() string {
	switch {
	case d.Applied:
		return "applied"
	case d.Kind == KindNone:
		return "skipped"
	default:
		return "rejected"
	}
}
