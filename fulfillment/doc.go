// Package fulfillment orchestrates one purchase event end to end: ledger
// consultation, provider provisioning, deliverable composition, and the
// translation of every outcome into an HTTP status the webhook sender can
// key its retries off.
package fulfillment
