package hearth

import _ "embed"

// Version is the release of hearth, read from the VERSION file at build time.
//
//go:embed VERSION
var Version string
