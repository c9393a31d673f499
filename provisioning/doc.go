// Package provisioning contains the client for the asynchronous eSIM
// provider: one order placement per fulfillment attempt, then a bounded
// poll loop classifying every provider response into exactly one outcome.
//
// The client holds no cross-call state. The caller owns per-purchase mutual
// exclusion; concurrent orders for different purchases are safe.
package provisioning
