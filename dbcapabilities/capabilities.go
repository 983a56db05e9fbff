package dbcapabilities

import "strings"

// DatabaseID is the canonical identifier for a database engine known to the
// provider layer. Use these constants to look up descriptor information.
type DatabaseID string

const (
	PostgreSQL DatabaseID = "postgres"
	SQLite     DatabaseID = "sqlite"

	// Declared targets without a shipped adapter.
	MySQL   DatabaseID = "mysql"
	MongoDB DatabaseID = "mongodb"
	Redis   DatabaseID = "redis"
)

// DataParadigm enumerates the primary data storage paradigms an engine supports.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational" // Tables, schemas, SQL
	ParadigmDocument   DataParadigm = "document"   // Collections, documents
	ParadigmKeyValue   DataParadigm = "keyvalue"   // Key/Value
)

// Descriptor describes an engine in a way callers can consume uniformly.
type Descriptor struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseID constants).
	ID DatabaseID `json:"id"`

	// Whether the engine exposes a built-in/system database and its typical names.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Whether the engine hosts multiple named databases reachable from one
	// server connection. SQLite is file-scoped and does not.
	MultiDatabase bool `json:"multiDatabase"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Whether an adapter ships in this module. Declared-only engines can be
	// referenced by name but cannot be instantiated.
	HasAdapter bool `json:"hasAdapter"`

	// Common aliases (driver names, env labels) that map to this engine.
	Aliases []string `json:"aliases,omitempty"`
}

// All is the registry of engine descriptors keyed by the canonical database ID.
var All = map[DatabaseID]Descriptor{
	PostgreSQL: {
		Name:              "PostgreSQL",
		ID:                PostgreSQL,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"postgres", "template0", "template1"},
		MultiDatabase:     true,
		Paradigms:         []DataParadigm{ParadigmRelational},
		HasAdapter:        true,
		Aliases:           []string{"postgresql", "pgsql", "pg"},
	},
	SQLite: {
		Name:          "SQLite",
		ID:            SQLite,
		MultiDatabase: false,
		Paradigms:     []DataParadigm{ParadigmRelational},
		HasAdapter:    true,
		Aliases:       []string{"sqlite3"},
	},
	MySQL: {
		Name:              "MySQL",
		ID:                MySQL,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"mysql"},
		MultiDatabase:     true,
		Paradigms:         []DataParadigm{ParadigmRelational},
		Aliases:           []string{"mariadb"},
	},
	MongoDB: {
		Name:              "MongoDB",
		ID:                MongoDB,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"admin"},
		MultiDatabase:     true,
		Paradigms:         []DataParadigm{ParadigmDocument},
		Aliases:           []string{"mongo"},
	},
	Redis: {
		Name:      "Redis",
		ID:        Redis,
		Paradigms: []DataParadigm{ParadigmKeyValue},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*2)
	for id, desc := range All {
		nameToID[strings.ToLower(string(id))] = id
		if desc.Name != "" {
			nameToID[strings.ToLower(desc.Name)] = id
		}
		for _, a := range desc.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary database name (canonical id, alias,
// or product name) to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// IDs returns the list of all known database IDs.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	return out
}

// Get returns the descriptor for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Descriptor, bool) {
	d, ok := All[id]
	return d, ok
}

// MustGet returns the descriptor for the given ID and panics if not found.
func MustGet(id DatabaseID) Descriptor {
	d, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return d
}

// HasAdapter reports whether an adapter for the engine ships in this module.
func HasAdapter(id DatabaseID) bool {
	d, ok := Get(id)
	return ok && d.HasAdapter
}

// SupportsParadigm reports whether the engine supports a given data paradigm.
func SupportsParadigm(id DatabaseID, p DataParadigm) bool {
	d, ok := Get(id)
	if !ok {
		return false
	}
	for _, dp := range d.Paradigms {
		if dp == p {
			return true
		}
	}
	return false
}

// HasSystemDB is a convenience accessor for HasSystemDatabase.
func HasSystemDB(id DatabaseID) bool {
	d, ok := Get(id)
	return ok && d.HasSystemDatabase
}
