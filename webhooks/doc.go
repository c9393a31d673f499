// Package webhooks is the inbound HTTP edge: it authenticates purchase
// notifications against the storefront's signing secret, parses them into
// purchase events, and relays the orchestrator's outcome verbatim.
package webhooks
