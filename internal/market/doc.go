// Package market is the marketplace acquisition engine. A Session owns the
// search state for one addon kind, the user's selection, a dependency
// resolver that computes the transitive closure of the selection, the review
// step where the user adjusts the final list, and the orchestrator that
// installs the confirmed list in order.
//
// Items are always keyed by (provider, identifier); identifiers alone are
// only unique within a provider.
package market
