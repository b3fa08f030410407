// Package plan defines subscription plans and the resource ceilings each one grants.
package plan

import (
	"fmt"
	"strings"

	dErrors "orbit/pkg/domain-errors"
)

// Plan is a subscription tier.
type Plan string

const (
	Free       Plan = "Free"
	Pro        Plan = "Pro"
	Enterprise Plan = "Enterprise"
)

// All lists every plan in upgrade order.
var All = []Plan{Free, Pro, Enterprise}

// Unlimited disables a ceiling.
const Unlimited = -1

// MiB is one mebibyte in bytes.
const MiB int64 = 1 << 20

// Limits holds the ceilings of a plan. Unlimited disables a ceiling.
type Limits struct {
	Clients      int64 `json:"clients"`
	Users        int64 `json:"users"`
	StorageBytes int64 `json:"storage"`
}

var limitsTable = map[Plan]Limits{
	Free:       {Clients: 10, Users: 2, StorageBytes: 100 * MiB},
	Pro:        {Clients: 100, Users: 10, StorageBytes: 1000 * MiB},
	Enterprise: {Clients: Unlimited, Users: Unlimited, StorageBytes: Unlimited},
}

// Parse accepts a plan name in any case ("pro", "PRO", "Pro").
func Parse(name string) (Plan, error) {
	name = strings.TrimSpace(name)
	for _, p := range All {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown subscription plan %q", name)
}

// IsValid reports whether p is a known plan.
func (p Plan) IsValid() bool {
	_, ok := limitsTable[p]
	return ok
}

// IsPaid reports whether p requires a billing subscription.
func (p Plan) IsPaid() bool {
	return p == Pro || p == Enterprise
}

// Limits returns the ceilings granted by p. Unknown plans get Free's ceilings.
func (p Plan) Limits() Limits {
	if l, ok := limitsTable[p]; ok {
		return l
	}
	return limitsTable[Free]
}

// Allows reports whether current+delta fits under limit.
func Allows(limit, current, delta int64) bool {
	if limit == Unlimited {
		return true
	}
	return current+delta <= limit
}

// FormatCount renders a ceiling for API responses.
func FormatCount(limit int64) string {
	if limit == Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}

// FormatBytes renders a storage amount in MB, or "unlimited".
func FormatBytes(n int64) string {
	if n == Unlimited {
		return "unlimited"
	}
	mb := float64(n) / float64(MiB)
	if n%MiB == 0 {
		return fmt.Sprintf("%dMB", n/MiB)
	}
	return fmt.Sprintf("%.2fMB", mb)
}
