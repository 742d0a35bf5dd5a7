package domain

type WarningKind string

const (
	WarningMissingManifest WarningKind = "missing_manifest"
	WarningEmptyManifest   WarningKind = "empty_manifest"
	WarningMissingSummary  WarningKind = "missing_summary"
	WarningInvalidEntry    WarningKind = "invalid_entry"
)

// Warning reports catalog data that was out of sync with ownership data and
// was degraded to a zero contribution instead of failing the request.
type Warning struct {
	Kind       WarningKind
	AssemblyID string
}
