package temperatures

import (
	_ "embed"
	"fmt"

	"github.com/iver-wharf/temperatures/internal/buildtarget"
	"github.com/iver-wharf/wharf-core/v2/pkg/app"
)

// LocalDevVersion is the version of binaries that were not built by the
// release workflow, which overwrites assets/version.yaml with the pushed tag.
const LocalDevVersion = "local dev"

//go:embed assets/version.yaml
var versionFile []byte

// GetVersion returns the version embedded at build time. When the embedded
// file cannot be parsed it returns the error together with LocalDevVersion.
func GetVersion() (app.Version, error) {
	var version app.Version
	if err := app.UnmarshalVersionYAML(versionFile, &version); err != nil {
		return app.Version{Version: LocalDevVersion}, fmt.Errorf("parse embedded version file: %w", err)
	}
	if version.Version == "" {
		version.Version = LocalDevVersion
	}
	return version, nil
}

// IsRelease reports whether the version names a release tag, which is only
// the case for binaries published by the release workflow.
func IsRelease(v app.Version) bool {
	return buildtarget.IsReleaseTag(v.Version)
}
