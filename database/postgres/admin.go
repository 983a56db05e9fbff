package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dbglass/dbglass/provider"
)

// databaseNamePattern is the allowed shape for database identifiers used in
// DDL. Names are validated before interpolation; there is no parameter
// binding for identifiers in CREATE/ALTER/DROP DATABASE.
var databaseNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// reservedDatabases cannot be created, renamed, or dropped.
var reservedDatabases = map[string]bool{
	"postgres":  true,
	"template0": true,
	"template1": true,
}

// AdminOps implements cross-database administration over the provider's pool.
type AdminOps struct {
	p *Provider
}

func validateDatabaseName(name string) error {
	if name == "" {
		return provider.NewProviderError(provider.CodeValidationError, "database name cannot be empty")
	}
	if !databaseNamePattern.MatchString(name) {
		return provider.NewProviderError(provider.CodeValidationError,
			fmt.Sprintf("invalid database name %q: only letters, digits, and underscores are allowed, starting with a letter or underscore", name))
	}
	return nil
}

func requireNotReserved(name string) error {
	if reservedDatabases[strings.ToLower(name)] {
		return provider.NewProviderError(provider.CodeValidationError,
			fmt.Sprintf("database %q is reserved and cannot be modified", name))
	}
	return nil
}

// activeConnections counts other sessions connected to the named database.
// The session running the query never counts itself.
func (a *AdminOps) activeConnections(ctx context.Context, name string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`

	var count int
	err := a.p.queryRows(ctx, query, func(rows pgx.Rows) error {
		return rows.Scan(&count)
	}, name)
	return count, err
}

// terminateConnections force-disconnects every other session on the named
// database and reports how many were terminated.
func (a *AdminOps) terminateConnections(ctx context.Context, name string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM (
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()
		) t`

	var count int
	err := a.p.queryRows(ctx, query, func(rows pgx.Rows) error {
		return rows.Scan(&count)
	}, name)
	return count, err
}

// CreateDatabase creates a database, applying any optional owner, template,
// encoding, and connection-limit settings.
func (a *AdminOps) CreateDatabase(ctx context.Context, name string, opts provider.CreateDatabaseOptions) *provider.Envelope[provider.AdminResult] {
	return a.run(ctx, func(ctx context.Context) (provider.AdminResult, error) {
		if err := validateDatabaseName(name); err != nil {
			return provider.AdminResult{}, err
		}
		if err := requireNotReserved(name); err != nil {
			return provider.AdminResult{}, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "CREATE DATABASE %s", quoteIdentifier(name))
		if opts.Owner != "" {
			if err := validateDatabaseName(opts.Owner); err != nil {
				return provider.AdminResult{}, err
			}
			fmt.Fprintf(&b, " OWNER %s", quoteIdentifier(opts.Owner))
		}
		if opts.Template != "" {
			if err := validateDatabaseName(opts.Template); err != nil {
				return provider.AdminResult{}, err
			}
			fmt.Fprintf(&b, " TEMPLATE %s", quoteIdentifier(opts.Template))
		}
		if opts.Encoding != "" {
			fmt.Fprintf(&b, " ENCODING '%s'", strings.ReplaceAll(opts.Encoding, "'", "''"))
		}
		if opts.ConnectionLimit > 0 {
			fmt.Fprintf(&b, " CONNECTION LIMIT %d", opts.ConnectionLimit)
		}

		if _, err := a.p.exec(ctx, b.String()); err != nil {
			return provider.AdminResult{}, err
		}
		return provider.AdminResult{Operation: "create", Database: name}, nil
	})
}

// RenameDatabase renames a database. Without force it fails if other sessions
// are connected to the target; with force those sessions are terminated
// first.
func (a *AdminOps) RenameDatabase(ctx context.Context, oldName, newName string, force bool) *provider.Envelope[provider.AdminResult] {
	return a.run(ctx, func(ctx context.Context) (provider.AdminResult, error) {
		if err := validateDatabaseName(oldName); err != nil {
			return provider.AdminResult{}, err
		}
		if err := validateDatabaseName(newName); err != nil {
			return provider.AdminResult{}, err
		}
		if err := requireNotReserved(oldName); err != nil {
			return provider.AdminResult{}, err
		}

		terminated, err := a.drainOrFail(ctx, oldName, force, "rename")
		if err != nil {
			return provider.AdminResult{}, err
		}

		query := fmt.Sprintf("ALTER DATABASE %s RENAME TO %s",
			quoteIdentifier(oldName), quoteIdentifier(newName))
		if _, err := a.p.exec(ctx, query); err != nil {
			return provider.AdminResult{}, err
		}
		return provider.AdminResult{
			Operation:             "rename",
			Database:              newName,
			TerminatedConnections: terminated,
		}, nil
	})
}

// DropDatabase drops a database. Without force it fails if other sessions are
// connected; with force those sessions are terminated first.
func (a *AdminOps) DropDatabase(ctx context.Context, name string, force bool) *provider.Envelope[provider.AdminResult] {
	return a.run(ctx, func(ctx context.Context) (provider.AdminResult, error) {
		if err := validateDatabaseName(name); err != nil {
			return provider.AdminResult{}, err
		}
		if err := requireNotReserved(name); err != nil {
			return provider.AdminResult{}, err
		}

		terminated, err := a.drainOrFail(ctx, name, force, "drop")
		if err != nil {
			return provider.AdminResult{}, err
		}

		query := fmt.Sprintf("DROP DATABASE %s", quoteIdentifier(name))
		if _, err := a.p.exec(ctx, query); err != nil {
			return provider.AdminResult{}, err
		}
		return provider.AdminResult{
			Operation:             "drop",
			Database:              name,
			TerminatedConnections: terminated,
		}, nil
	})
}

// drainOrFail enforces the active-connection policy shared by rename and
// drop: count other sessions, fail with that count unless force, terminate
// under force.
func (a *AdminOps) drainOrFail(ctx context.Context, name string, force bool, operation string) (int, error) {
	active, err := a.activeConnections(ctx, name)
	if err != nil {
		return 0, err
	}
	if active == 0 {
		return 0, nil
	}
	if !force {
		return 0, provider.NewProviderError(provider.CodeProviderError,
			fmt.Sprintf("cannot %s database %q: %d active connection(s); retry with force to terminate them", operation, name, active))
	}
	return a.terminateConnections(ctx, name)
}

// run is the envelope boundary for admin operations.
func (a *AdminOps) run(ctx context.Context, fn func(ctx context.Context) (provider.AdminResult, error)) *provider.Envelope[provider.AdminResult] {
	return provider.Run(ctx, string(a.p.Type()), providerVersion,
		func(ctx context.Context) (provider.AdminResult, error) {
			if err := a.p.requireConnected(); err != nil {
				return provider.AdminResult{}, err
			}
			return fn(ctx)
		})
}
