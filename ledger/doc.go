// Package ledger contains the idempotency ledger guarding the
// at-most-once-provisioning invariant.
//
// The ledger is one mutual-exclusion domain: lookup, the processing marker
// write, terminal transitions, and the retention sweep all serialize on the
// same lock, so two concurrent deliveries of one purchase can never both
// observe an absent record.
package ledger
