package quota

import (
	"errors"
	"fmt"

	"orbit/internal/plan"
)

// ExceededError describes a denied admission.
type ExceededError struct {
	Kind      Kind
	Current   int64
	Requested int64
	Limit     int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: current=%d requested=%d limit=%d", e.Kind, e.Current, e.Requested, e.Limit)
}

// Message is the user-facing explanation.
func (e *ExceededError) Message() string {
	switch e.Kind {
	case KindUsers:
		return "user limit reached for the current plan, upgrade to add more"
	case KindClients:
		return "client limit reached for the current plan, upgrade to add more"
	case KindStorage:
		return fmt.Sprintf("storage limit exceeded: %s used of %s", plan.FormatBytes(e.Current), plan.FormatBytes(e.Limit))
	default:
		return "quota exceeded"
	}
}

// AsExceeded extracts the denial details from an error chain.
func AsExceeded(err error) (*ExceededError, bool) {
	var exceeded *ExceededError
	if errors.As(err, &exceeded) {
		return exceeded, true
	}
	return nil, false
}
