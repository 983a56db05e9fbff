// Package dbcapabilities provides a shared registry describing the database
// engines the provider layer knows about, together with the fixed capability
// vocabulary providers declare support against. Consumers can import this
// package to make decisions based on uniform metadata without version-sniffing
// the underlying engine.
//
// Minimal usage example:
//
//	import "github.com/dbglass/dbglass/dbcapabilities"
//
//	func supportsTransactions(m dbcapabilities.CapabilityMap) bool {
//	    return m.Has(dbcapabilities.TransactionBasic)
//	}
//
// The package exposes constants for engine IDs (e.g., dbcapabilities.PostgreSQL),
// a descriptor registry `All`, and the closed capability enumeration returned by
// AllCapabilities. Capability maps built through BuildCapabilityMap are total:
// every known identifier is present, explicitly marked supported or unsupported.
package dbcapabilities
