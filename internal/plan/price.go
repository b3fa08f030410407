package plan

import "strings"

// PriceTable maps opaque billing price identifiers to plans.
type PriceTable struct {
	byPrice map[string]Plan
	byPlan  map[Plan]string
}

// NewPriceTable builds a table from plan -> price id. Empty ids are skipped.
func NewPriceTable(prices map[Plan]string) *PriceTable {
	t := &PriceTable{
		byPrice: make(map[string]Plan, len(prices)),
		byPlan:  make(map[Plan]string, len(prices)),
	}
	for p, priceID := range prices {
		priceID = strings.TrimSpace(priceID)
		if priceID == "" || !p.IsPaid() {
			continue
		}
		t.byPrice[priceID] = p
		t.byPlan[p] = priceID
	}
	return t
}

// PlanFor resolves a price id. Missing or unrecognized ids resolve to Free.
func (t *PriceTable) PlanFor(priceID string) Plan {
	if t == nil {
		return Free
	}
	if p, ok := t.byPrice[strings.TrimSpace(priceID)]; ok {
		return p
	}
	return Free
}

// PriceFor returns the price id billed for a paid plan.
func (t *PriceTable) PriceFor(p Plan) (string, bool) {
	if t == nil {
		return "", false
	}
	priceID, ok := t.byPlan[p]
	return priceID, ok
}
