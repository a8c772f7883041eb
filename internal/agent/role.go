package agent

import (
	"unicode/utf16"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// DefaultRoleName is the role used until a document supplies a catalog.
const DefaultRoleName = "general editor"

// hashSeed and hashFactor define the identity hash.
const (
	hashSeed   uint32 = 7
	hashFactor uint32 = 31
)

// HashIdentity is a polynomial rolling hash over the UTF-16 code units of id,
// reduced to 32 bits. Agents written against the same catalog in other
// runtimes that hash UTF-16 strings the same way pick the same roles.
func HashIdentity(id string) uint32 {
	h := hashSeed
	for _, unit := range utf16.Encode([]rune(id)) {
		h = h*hashFactor + uint32(unit)
	}
	return h
}

// AssignRole picks the catalog entry for agentID. The choice depends only on
// the identity and the catalog, so any process computing it gets the same
// answer. It returns false for an empty catalog.
func AssignRole(agentID string, catalog []remote.RoleSpec) (remote.RoleSpec, int, bool) {
	if len(catalog) == 0 {
		return remote.RoleSpec{}, -1, false
	}
	idx := int(HashIdentity(agentID) % uint32(len(catalog)))
	return catalog[idx], idx, true
}
