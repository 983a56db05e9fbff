package sqlite

import (
	"context"
	"os"

	"github.com/dbglass/dbglass/provider"
)

// MaintenanceOps implements file-level maintenance for a SQLite database.
type MaintenanceOps struct {
	p *Provider
}

// EngineVersion reports the linked SQLite library version.
func (m *MaintenanceOps) EngineVersion(ctx context.Context) *provider.Envelope[provider.VersionInfo] {
	return runOp(ctx, m.p, func(ctx context.Context) (provider.VersionInfo, error) {
		var version string
		if err := m.p.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
			return provider.VersionInfo{}, classifyError(err)
		}
		return provider.VersionInfo{Version: version}, nil
	})
}

// FileSize reports the size of the backing database file. In-memory
// databases have no file and report zero.
func (m *MaintenanceOps) FileSize(ctx context.Context) *provider.Envelope[provider.FileSizeInfo] {
	return runOp(ctx, m.p, func(ctx context.Context) (provider.FileSizeInfo, error) {
		info := provider.FileSizeInfo{Path: m.p.cfg.FilePath}
		if m.p.inMemory() {
			return info, nil
		}
		st, err := os.Stat(m.p.cfg.FilePath)
		if err != nil {
			return provider.FileSizeInfo{}, provider.WrapProviderError(provider.CodeProviderError, err)
		}
		info.SizeBytes = st.Size()
		return info, nil
	})
}

// Vacuum rebuilds the database file, reclaiming free pages.
func (m *MaintenanceOps) Vacuum(ctx context.Context) *provider.Envelope[provider.AdminResult] {
	return runOp(ctx, m.p, func(ctx context.Context) (provider.AdminResult, error) {
		if _, err := m.p.db.ExecContext(ctx, "VACUUM"); err != nil {
			return provider.AdminResult{}, classifyError(err)
		}
		return provider.AdminResult{Operation: "vacuum", Database: m.p.cfg.FilePath}, nil
	})
}

// IntegrityCheck runs PRAGMA integrity_check and reports the raw engine
// messages when the database is not intact.
func (m *MaintenanceOps) IntegrityCheck(ctx context.Context) *provider.Envelope[provider.IntegrityResult] {
	return runOp(ctx, m.p, func(ctx context.Context) (provider.IntegrityResult, error) {
		rows, err := m.p.db.QueryContext(ctx, "PRAGMA integrity_check")
		if err != nil {
			return provider.IntegrityResult{}, classifyError(err)
		}
		defer rows.Close()

		var messages []string
		for rows.Next() {
			var msg string
			if err := rows.Scan(&msg); err != nil {
				return provider.IntegrityResult{}, classifyError(err)
			}
			messages = append(messages, msg)
		}
		if err := rows.Err(); err != nil {
			return provider.IntegrityResult{}, classifyError(err)
		}

		if len(messages) == 1 && messages[0] == "ok" {
			return provider.IntegrityResult{OK: true}, nil
		}
		return provider.IntegrityResult{OK: false, Messages: messages}, nil
	})
}

// runOp is the envelope boundary for maintenance operations.
func runOp[T any](ctx context.Context, p *Provider, fn func(ctx context.Context) (T, error)) *provider.Envelope[T] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (T, error) {
			var zero T
			if err := p.requireConnected(); err != nil {
				return zero, err
			}
			return fn(ctx)
		})
}
