package provider

import (
	"context"

	"github.com/dbglass/dbglass/dbcapabilities"
)

// UnsupportedAdmin rejects cross-database administration on engines that lack
// it. Rejection is explicit, never a silent no-op.
type UnsupportedAdmin struct {
	providerType dbcapabilities.DatabaseID
	version      string
}

// NewUnsupportedAdmin creates an AdminOperator that rejects every call.
func NewUnsupportedAdmin(providerType dbcapabilities.DatabaseID, version string) AdminOperator {
	return &UnsupportedAdmin{providerType: providerType, version: version}
}

func (u *UnsupportedAdmin) reject(operation string) *Envelope[AdminResult] {
	err := NewUnsupportedOperationError(u.providerType, operation, "engine is not multi-database")
	return Failure[AdminResult](err, string(u.providerType), u.version, 0)
}

func (u *UnsupportedAdmin) CreateDatabase(ctx context.Context, name string, opts CreateDatabaseOptions) *Envelope[AdminResult] {
	return u.reject("create database")
}

func (u *UnsupportedAdmin) RenameDatabase(ctx context.Context, oldName, newName string, force bool) *Envelope[AdminResult] {
	return u.reject("rename database")
}

func (u *UnsupportedAdmin) DropDatabase(ctx context.Context, name string, force bool) *Envelope[AdminResult] {
	return u.reject("drop database")
}

// UnsupportedMaintenance rejects file-level maintenance on engines that are
// not file-backed.
type UnsupportedMaintenance struct {
	providerType dbcapabilities.DatabaseID
	version      string
}

// NewUnsupportedMaintenance creates a MaintenanceOperator that rejects every call.
func NewUnsupportedMaintenance(providerType dbcapabilities.DatabaseID, version string) MaintenanceOperator {
	return &UnsupportedMaintenance{providerType: providerType, version: version}
}

func (u *UnsupportedMaintenance) err(operation string) error {
	return NewUnsupportedOperationError(u.providerType, operation, "engine is not file-backed")
}

func (u *UnsupportedMaintenance) EngineVersion(ctx context.Context) *Envelope[VersionInfo] {
	return Failure[VersionInfo](u.err("engine version"), string(u.providerType), u.version, 0)
}

func (u *UnsupportedMaintenance) FileSize(ctx context.Context) *Envelope[FileSizeInfo] {
	return Failure[FileSizeInfo](u.err("file size"), string(u.providerType), u.version, 0)
}

func (u *UnsupportedMaintenance) Vacuum(ctx context.Context) *Envelope[AdminResult] {
	return Failure[AdminResult](u.err("vacuum"), string(u.providerType), u.version, 0)
}

func (u *UnsupportedMaintenance) IntegrityCheck(ctx context.Context) *Envelope[IntegrityResult] {
	return Failure[IntegrityResult](u.err("integrity check"), string(u.providerType), u.version, 0)
}

// IsUnsupportedOperator checks if an operator is one of the rejection-only
// implementations, for routing layers that want to hide unavailable actions.
func IsUnsupportedOperator(op interface{}) bool {
	switch op.(type) {
	case *UnsupportedAdmin, *UnsupportedMaintenance:
		return true
	default:
		return false
	}
}
