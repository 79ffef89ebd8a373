package types

import (
	"sort"
	"strings"
)

// Instance is the lifecycle collaborator's handle to a started container.
type Instance interface {
	ID() InstanceID // Runtime identifier.
	Name() string   // Container name as reported by the runtime.
}

// InstanceID is a hash string for a container instance.
type InstanceID string

// ShortID returns the 12-character short version of an instance ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id InstanceID) ShortID() string {
	return shortID(string(id))
}

// shortID shortens a hash string to 12 characters.
//
// Parameters:
//   - longID: Full hash string.
//
// Returns:
//   - string: Shortened ID, adjusted for "sha256:" prefix.
func shortID(longID string) string {
	prefixSep := strings.IndexRune(longID, ':')
	offset := 0
	length := 12

	// Adjust offset for "sha256:" prefix.
	if prefixSep >= 0 {
		if longID[0:prefixSep] == "sha256" {
			offset = prefixSep + 1
		} else {
			length += prefixSep + 1
		}
	}

	// Return shortened ID or full string if too short.
	if len(longID) >= offset+length {
		return longID[offset : offset+length]
	}

	return longID
}

// sortedPairs renders a map as sorted KEY=VALUE entries.
func sortedPairs(values map[string]string) []string {
	pairs := make([]string, 0, len(values))
	for key, value := range values {
		pairs = append(pairs, key+"="+value)
	}

	sort.Strings(pairs)

	return pairs
}
