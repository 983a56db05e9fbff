// Package provider defines the unified contract over heterogeneous database
// engines: connection lifecycle, capability negotiation, metadata
// introspection, row-level CRUD, raw query execution, and retried
// transactions.
//
// # Architecture
//
// The package follows an interface-driven design with several key components:
//
//   - Provider: the main interface every backend adapter implements
//   - Registry: maps provider-type identifiers to factories and caches live instances
//   - Envelope: the uniform success/error/timing wrapper around operation results
//   - Row options: structured filter/sort/pagination shapes adapters compile to SQL
//   - AdminOperator / MaintenanceOperator: engine-specific surfaces with explicit
//     unsupported-operation rejection on engines that lack them
//
// # Usage
//
// Construct a registry at process startup and register the adapters you ship:
//
//	import (
//	    "github.com/dbglass/dbglass/database/postgres"
//	    "github.com/dbglass/dbglass/database/sqlite"
//	    "github.com/dbglass/dbglass/provider"
//	)
//
//	reg := provider.NewRegistry(nil)
//	reg.Register(postgres.Registration())
//	reg.Register(sqlite.Registration())
//
// Then obtain a connected provider and call through the common interface:
//
//	cfg := provider.Config{
//	    Host:         "localhost",
//	    Port:         5432,
//	    DatabaseName: "myapp",
//	    Username:     "user",
//	    Password:     "pass",
//	}
//
//	p, err := reg.GetOrCreateProvider(ctx, dbcapabilities.PostgreSQL, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	env := p.SelectRows(ctx, provider.RowQueryOptions{Table: "users", Limit: 100})
//	rows, err := env.Unwrap()
//
// Every operation returns an *Envelope carrying either data or classified
// errors, plus timing metadata, regardless of backend.
package provider
