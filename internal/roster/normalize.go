package roster

import "strings"

var nameStripper = strings.NewReplacer(" ", "", "-", "")

// Normalize reduces a person name to a comparison key: all spaces and
// hyphens removed, lowercased. Empty input yields an empty key. The key is
// only ever compared, never displayed.
func Normalize(name string) string {
	return strings.ToLower(nameStripper.Replace(name))
}
