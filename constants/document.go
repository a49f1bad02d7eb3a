package constants

import "strings"

// Document types as reported by the extraction service.
const (
	DocTypeLicence  = "licence"
	DocTypeIdentite = "identite"
)

// Result blob name prefixes. Other tools read the results bucket directly,
// so these are part of the storage contract.
const (
	PrefixLicence  = "LIC"
	PrefixIdentity = "PID"
	PrefixUnknown  = "UNKNOWN"
)

// LockSuffix marks processing-lock blobs in the results bucket.
const LockSuffix = ".LOCK"

// ResultExt is the extension of persisted result blobs.
const ResultExt = ".json"

// PrefixForDocType maps a reported document type to its result blob prefix.
// The comparison is case-insensitive; anything unrecognized is UNKNOWN.
func PrefixForDocType(docType string) string {
	switch strings.ToLower(strings.TrimSpace(docType)) {
	case DocTypeLicence:
		return PrefixLicence
	case DocTypeIdentite:
		return PrefixIdentity
	default:
		return PrefixUnknown
	}
}
