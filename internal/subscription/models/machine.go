package models

import "orbit/internal/plan"

type transitionKey struct {
	From   plan.Plan
	Kind   EventKind
	Target plan.Plan
}

// transitions enumerates every (state, event, target) combination. A
// completed checkout never downgrades, a subscription update only moves a
// paid tenant, and a cancellation always lands on Free.
var transitions = map[transitionKey]plan.Plan{
	{plan.Free, KindCheckoutCompleted, plan.Free}:       plan.Free,
	{plan.Free, KindCheckoutCompleted, plan.Pro}:        plan.Pro,
	{plan.Free, KindCheckoutCompleted, plan.Enterprise}: plan.Enterprise,

	{plan.Pro, KindCheckoutCompleted, plan.Free}:       plan.Pro,
	{plan.Pro, KindCheckoutCompleted, plan.Pro}:        plan.Pro,
	{plan.Pro, KindCheckoutCompleted, plan.Enterprise}: plan.Enterprise,

	{plan.Enterprise, KindCheckoutCompleted, plan.Free}:       plan.Enterprise,
	{plan.Enterprise, KindCheckoutCompleted, plan.Pro}:        plan.Enterprise,
	{plan.Enterprise, KindCheckoutCompleted, plan.Enterprise}: plan.Enterprise,

	{plan.Free, KindSubscriptionUpdated, plan.Free}:       plan.Free,
	{plan.Free, KindSubscriptionUpdated, plan.Pro}:        plan.Free,
	{plan.Free, KindSubscriptionUpdated, plan.Enterprise}: plan.Free,

	{plan.Pro, KindSubscriptionUpdated, plan.Free}:       plan.Free,
	{plan.Pro, KindSubscriptionUpdated, plan.Pro}:        plan.Pro,
	{plan.Pro, KindSubscriptionUpdated, plan.Enterprise}: plan.Enterprise,

	{plan.Enterprise, KindSubscriptionUpdated, plan.Free}:       plan.Free,
	{plan.Enterprise, KindSubscriptionUpdated, plan.Pro}:        plan.Pro,
	{plan.Enterprise, KindSubscriptionUpdated, plan.Enterprise}: plan.Enterprise,

	{plan.Free, KindSubscriptionCancelled, plan.Free}:       plan.Free,
	{plan.Free, KindSubscriptionCancelled, plan.Pro}:        plan.Free,
	{plan.Free, KindSubscriptionCancelled, plan.Enterprise}: plan.Free,

	{plan.Pro, KindSubscriptionCancelled, plan.Free}:       plan.Free,
	{plan.Pro, KindSubscriptionCancelled, plan.Pro}:        plan.Free,
	{plan.Pro, KindSubscriptionCancelled, plan.Enterprise}: plan.Free,

	{plan.Enterprise, KindSubscriptionCancelled, plan.Free}:       plan.Free,
	{plan.Enterprise, KindSubscriptionCancelled, plan.Pro}:        plan.Free,
	{plan.Enterprise, KindSubscriptionCancelled, plan.Enterprise}: plan.Free,
}

// Transition is the effect of one event on a tenant's plan. Limits are the
// full replacement ceilings of To; storage usage is not part of it.
type Transition struct {
	From    plan.Plan
	To      plan.Plan
	Limits  plan.Limits
	Changed bool
}

// Next looks up the transition for ev from state from. It reports false for
// combinations outside the table, such as unknown kinds.
func Next(from plan.Plan, ev Event) (Transition, bool) {
	target := ev.Target
	if !target.IsValid() {
		target = plan.Free
	}
	to, ok := transitions[transitionKey{From: from, Kind: ev.Kind, Target: target}]
	if !ok {
		return Transition{}, false
	}
	return Transition{From: from, To: to, Limits: to.Limits(), Changed: from != to}, true
}
