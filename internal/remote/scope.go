package remote

import "strconv"

// directoryParam is the query parameter selecting a collection level.
const directoryParam = "directory"

// rootDirectory selects the top level of a collection.
const rootDirectory = "-"

// Scope selects which level of a collection a request addresses.
// The zero value adds no parameter.
type Scope struct {
	value string
}

// NoScope leaves the URL unchanged.
var NoScope = Scope{}

// RootScope addresses the collection root (directory=-).
func RootScope() Scope {
	return Scope{value: rootDirectory}
}

// DirectoryScope addresses the sub-collection with the given id.
func DirectoryScope(id int) Scope {
	return Scope{value: strconv.Itoa(id)}
}

// IsRoot reports whether s addresses the collection root.
func (s Scope) IsRoot() bool {
	return s.value == rootDirectory
}

func (s Scope) String() string {
	if s.value == "" {
		return "none"
	}
	return s.value
}
