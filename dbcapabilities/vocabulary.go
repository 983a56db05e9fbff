package dbcapabilities

// CapabilityID is a named feature a provider may or may not support.
// Identifiers are namespaced by a dot-separated family prefix.
type CapabilityID string

const (
	// connection.* family
	ConnectionConnect CapabilityID = "connection.connect"
	ConnectionPooling CapabilityID = "connection.pooling"
	ConnectionSSL     CapabilityID = "connection.ssl"

	// metadata.* family
	MetadataDatabases   CapabilityID = "metadata.databases"
	MetadataSchemas     CapabilityID = "metadata.schemas"
	MetadataTables      CapabilityID = "metadata.tables"
	MetadataColumns     CapabilityID = "metadata.columns"
	MetadataIndexes     CapabilityID = "metadata.indexes"
	MetadataConstraints CapabilityID = "metadata.constraints"

	// data.* family
	DataSelect   CapabilityID = "data.select"
	DataInsert   CapabilityID = "data.insert"
	DataUpdate   CapabilityID = "data.update"
	DataDelete   CapabilityID = "data.delete"
	DataRawQuery CapabilityID = "data.raw_query"

	// transaction.* family
	TransactionBasic      CapabilityID = "transaction.basic"
	TransactionSavepoints CapabilityID = "transaction.savepoints"
	TransactionRetry      CapabilityID = "transaction.retry"

	// feature.* family
	FeatureAdminDatabase        CapabilityID = "feature.admin_database"
	FeatureTerminateConnections CapabilityID = "feature.terminate_connections"
	FeatureVacuum               CapabilityID = "feature.vacuum"
	FeatureIntegrityCheck       CapabilityID = "feature.integrity_check"
	FeatureWAL                  CapabilityID = "feature.wal"
)

// allCapabilities is the closed capability enumeration. Order is stable so
// summaries and capability maps iterate deterministically.
var allCapabilities = []CapabilityID{
	ConnectionConnect,
	ConnectionPooling,
	ConnectionSSL,
	MetadataDatabases,
	MetadataSchemas,
	MetadataTables,
	MetadataColumns,
	MetadataIndexes,
	MetadataConstraints,
	DataSelect,
	DataInsert,
	DataUpdate,
	DataDelete,
	DataRawQuery,
	TransactionBasic,
	TransactionSavepoints,
	TransactionRetry,
	FeatureAdminDatabase,
	FeatureTerminateConnections,
	FeatureVacuum,
	FeatureIntegrityCheck,
	FeatureWAL,
}

// AllCapabilities returns the full known capability enumeration.
func AllCapabilities() []CapabilityID {
	out := make([]CapabilityID, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// IsKnownCapability reports whether id is part of the closed vocabulary.
func IsKnownCapability(id CapabilityID) bool {
	for _, c := range allCapabilities {
		if c == id {
			return true
		}
	}
	return false
}

// CapabilityInfo records the support status of one capability for a provider.
type CapabilityInfo struct {
	Capability CapabilityID `json:"capability"`
	Supported  bool         `json:"supported"`
	Version    string       `json:"version,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// CapabilityMap is the total mapping from every known capability identifier to
// its support status for one provider type. Partial maps are a defect; build
// maps through BuildCapabilityMap so totality holds by construction.
type CapabilityMap struct {
	ProviderType DatabaseID                      `json:"providerType"`
	Capabilities map[CapabilityID]CapabilityInfo `json:"capabilities"`
}

// BuildCapabilityMap marks the declared set as supported and fills every
// remaining known identifier as unsupported with an explanatory note.
func BuildCapabilityMap(providerType DatabaseID, supported []CapabilityID) CapabilityMap {
	set := make(map[CapabilityID]bool, len(supported))
	for _, id := range supported {
		set[id] = true
	}

	caps := make(map[CapabilityID]CapabilityInfo, len(allCapabilities))
	for _, id := range allCapabilities {
		if set[id] {
			caps[id] = CapabilityInfo{Capability: id, Supported: true}
			continue
		}
		caps[id] = CapabilityInfo{
			Capability: id,
			Supported:  false,
			Notes:      "not supported by " + string(providerType),
		}
	}

	return CapabilityMap{ProviderType: providerType, Capabilities: caps}
}

// Has reports whether the capability is supported. Unknown identifiers
// default to false.
func (m CapabilityMap) Has(id CapabilityID) bool {
	info, ok := m.Capabilities[id]
	return ok && info.Supported
}

// Supported returns the supported capability identifiers in enumeration order.
func (m CapabilityMap) Supported() []CapabilityID {
	var out []CapabilityID
	for _, id := range allCapabilities {
		if m.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
