package provider

import (
	"context"
	"time"

	"github.com/dbglass/dbglass/dbcapabilities"
)

// Provider is the contract every backend adapter implements. A provider is a
// live, stateful connection-holder: created by a factory, explicitly
// Connect()ed before use, and Disconnect()ed to release resources.
//
// State machine: Uninitialized → Connected → Disconnected. Any data operation
// outside Connected fails fast with ErrNotConnected rather than a confusing
// driver-level failure.
type Provider interface {
	// Identity and status
	ID() string
	Type() dbcapabilities.DatabaseID
	Version() string
	Config() Config
	IsConnected() bool

	// Lifecycle management. Disconnect on an already-disconnected instance
	// must not return an error.
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// TestConnection never fails at the transport level: connection failure
	// is domain data, reported inside a successful envelope.
	TestConnection(ctx context.Context) *Envelope[TestConnectionResult]

	// Status returns best-effort liveness and pool statistics. Fields are
	// optional because not all backends expose pool internals.
	Status(ctx context.Context) *Envelope[ProviderStatus]

	// Capability queries are pure and synchronous, no I/O.
	Capabilities() dbcapabilities.CapabilityMap
	HasCapability(id dbcapabilities.CapabilityID) bool

	// Metadata introspection. Each call is an independent query producing a
	// fresh projection. TableStructure fans out columns, indexes, and
	// constraints concurrently and joins the results.
	ListDatabases(ctx context.Context) *Envelope[[]DatabaseInfo]
	ListSchemas(ctx context.Context) *Envelope[[]SchemaInfo]
	ListTables(ctx context.Context, schema string) *Envelope[[]TableInfo]
	Columns(ctx context.Context, schema, table string) *Envelope[[]ColumnInfo]
	Indexes(ctx context.Context, schema, table string) *Envelope[[]IndexInfo]
	Constraints(ctx context.Context, schema, table string) *Envelope[[]ConstraintInfo]
	TableStructure(ctx context.Context, schema, table string) *Envelope[TableStructure]

	// Row CRUD and raw execution go through the engine's parameterized-query
	// path; values are never string-interpolated, only validated and quoted
	// identifiers are.
	SelectRows(ctx context.Context, opts RowQueryOptions) *Envelope[RowSet]
	InsertRow(ctx context.Context, opts RowInsertOptions) *Envelope[RowSet]
	UpdateRows(ctx context.Context, opts RowUpdateOptions) *Envelope[RowSet]
	DeleteRows(ctx context.Context, opts RowDeleteOptions) *Envelope[RowSet]
	ExecuteQuery(ctx context.Context, query string, args ...interface{}) *Envelope[RowSet]

	// Transaction runs fn inside BEGIN/COMMIT with ROLLBACK on error, and
	// retries the whole body from the start on classified-transient errors up
	// to maxRetries attempts with exponential backoff. Pass maxRetries <= 0
	// for the default.
	Transaction(ctx context.Context, maxRetries int, fn TxFunc) *Envelope[TxResult]

	// Engine-specific surfaces. Engines that lack one return an operator
	// whose methods reject with CAPABILITY_NOT_SUPPORTED rather than
	// silently no-op'ing.
	Admin() AdminOperator
	Maintenance() MaintenanceOperator
}

// TxFunc is the transaction body. Statement ordering is exactly the order the
// callback issues them; the whole body is atomic modulo retry-from-scratch,
// so the body must be safe to re-run.
type TxFunc func(ctx context.Context, tx Tx) error

// Tx is the statement surface available inside a transaction.
type Tx interface {
	// Exec runs a statement and returns the affected row count.
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)

	// Query runs a row-returning statement and materializes the result.
	Query(ctx context.Context, query string, args ...interface{}) (*RowSet, error)
}

// TxResult reports the outcome of a committed transaction.
type TxResult struct {
	Attempts int `json:"attempts"`
}

// TestConnectionResult is the domain-level outcome of a connection probe.
type TestConnectionResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency,omitempty"`
}

// ProviderStatus carries best-effort liveness and pool statistics.
type ProviderStatus struct {
	Connected     bool   `json:"connected"`
	ServerVersion string `json:"serverVersion,omitempty"`
	TotalConns    int32  `json:"totalConns,omitempty"`
	IdleConns     int32  `json:"idleConns,omitempty"`
	AcquiredConns int32  `json:"acquiredConns,omitempty"`
	MaxConns      int32  `json:"maxConns,omitempty"`
}

// AdminOperator handles cross-database administration. Only multi-database
// engines (PostgreSQL) support it.
type AdminOperator interface {
	CreateDatabase(ctx context.Context, name string, opts CreateDatabaseOptions) *Envelope[AdminResult]

	// RenameDatabase and DropDatabase first check for active connections on
	// the target; with force they terminate other sessions before
	// proceeding, otherwise they fail with a count-bearing error.
	RenameDatabase(ctx context.Context, oldName, newName string, force bool) *Envelope[AdminResult]
	DropDatabase(ctx context.Context, name string, force bool) *Envelope[AdminResult]
}

// CreateDatabaseOptions carries optional CREATE DATABASE settings.
type CreateDatabaseOptions struct {
	Owner           string `json:"owner,omitempty"`
	Template        string `json:"template,omitempty"`
	Encoding        string `json:"encoding,omitempty"`
	ConnectionLimit int    `json:"connectionLimit,omitempty"`
}

// AdminResult reports the outcome of an administrative operation.
type AdminResult struct {
	Operation             string `json:"operation"`
	Database              string `json:"database"`
	TerminatedConnections int    `json:"terminatedConnections,omitempty"`
}

// MaintenanceOperator handles file-level maintenance. Only file-backed
// engines (SQLite) support it.
type MaintenanceOperator interface {
	EngineVersion(ctx context.Context) *Envelope[VersionInfo]
	FileSize(ctx context.Context) *Envelope[FileSizeInfo]
	Vacuum(ctx context.Context) *Envelope[AdminResult]
	IntegrityCheck(ctx context.Context) *Envelope[IntegrityResult]
}

// VersionInfo reports the underlying engine version.
type VersionInfo struct {
	Version string `json:"version"`
}

// FileSizeInfo reports the size of a file-backed database.
type FileSizeInfo struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
}

// IntegrityResult reports the outcome of an integrity check, including the
// raw engine messages when the check does not pass.
type IntegrityResult struct {
	OK       bool     `json:"ok"`
	Messages []string `json:"messages,omitempty"`
}
