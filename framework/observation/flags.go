// Package observation is the reactive layer the expression engine and the
// bindings sit on: lifecycle flags, binding modes, scopes, reflective
// property access, property observers, the observer locator and the
// signaler.
package observation

import "strings"

// LifecycleFlags travel unchanged through every evaluate, connect and
// notify call.
type LifecycleFlags uint32

const (
	FlagsNone LifecycleFlags = 0

	// MustEvaluate turns "callee is nil" into a not-a-function error
	// instead of an undefined result.
	MustEvaluate LifecycleFlags = 1 << iota
	// ProxyStrategy observes through proxies; array indexers are observed
	// and plain objects met during iteration are wrapped.
	ProxyStrategy
	// IsOriginalArray marks the sequence being iterated as the view-model's
	// own slice rather than a copy built for iteration.
	IsOriginalArray
	FromBind
	FromUnbind
	UpdateTargetInstance
	UpdateSourceExpression
	FromDOMEvent
	FromSignal
	FromFlush
)

var flagNames = []struct {
	flag LifecycleFlags
	name string
}{
	{MustEvaluate, "mustEvaluate"},
	{ProxyStrategy, "proxyStrategy"},
	{IsOriginalArray, "isOriginalArray"},
	{FromBind, "fromBind"},
	{FromUnbind, "fromUnbind"},
	{UpdateTargetInstance, "updateTargetInstance"},
	{UpdateSourceExpression, "updateSourceExpression"},
	{FromDOMEvent, "fromDOMEvent"},
	{FromSignal, "fromSignal"},
	{FromFlush, "fromFlush"},
}

// Has reports whether every bit of mask is set.
func (f LifecycleFlags) Has(mask LifecycleFlags) bool { return f&mask == mask }

func (f LifecycleFlags) String() string {
	if f == FlagsNone {
		return "none"
	}
	var parts []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ── Binding modes ─────────────────────────────────────────────────────────────

// BindingMode decides which directions a property binding propagates.
type BindingMode uint8

const (
	OneTime  BindingMode = 1
	ToView   BindingMode = 2
	FromView BindingMode = 4
	TwoWay   BindingMode = ToView | FromView
	Default  BindingMode = 8
)

func (m BindingMode) String() string {
	switch m {
	case OneTime:
		return "oneTime"
	case ToView:
		return "toView"
	case FromView:
		return "fromView"
	case TwoWay:
		return "twoWay"
	case Default:
		return "default"
	}
	return "unknown"
}

// ParseBindingMode accepts the names printed by String, plus "bind" and
// "one-time" style spellings. Unknown names give Default.
func ParseBindingMode(s string) BindingMode {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "onetime":
		return OneTime
	case "toview", "oneway":
		return ToView
	case "fromview":
		return FromView
	case "twoway":
		return TwoWay
	}
	return Default
}
