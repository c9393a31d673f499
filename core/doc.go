// Package core contains canonical fulfillment domain contracts and entities.
// Surface and storage adapters must depend on this package; core must not
// depend on transport-specific or provider-specific adapters.
package core
