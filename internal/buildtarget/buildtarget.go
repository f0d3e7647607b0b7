// Package buildtarget describes the platforms that release binaries are
// cross-compiled for, and where the release build puts them.
package buildtarget

import (
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Release is the target that tagged releases are built for.
var Release = Triple{Arch: "armv7", Vendor: "unknown", OS: "linux", ABI: "gnueabihf"}

// BinaryName is the name of the release executable.
const BinaryName = "temperatures"

// goarm is the GOARM value the binary was built with. It cannot be read at
// runtime, so it defaults to the release target and may be overridden with
// -ldflags "-X github.com/iver-wharf/temperatures/internal/buildtarget.goarm=6".
var goarm = "7"

// ReleaseTagPattern is the glob that Git tags must match to trigger a
// release build.
const ReleaseTagPattern = "v*"

// Errors returned when parsing target triples.
var (
	ErrMalformedTriple = errors.New("target triple must be arch-vendor-os-abi")
	ErrUnsupportedArch = errors.New("unsupported target architecture")
)

// Triple is an arch-vendor-os-abi target identifier, as used by
// cross-compilation toolchains.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	ABI    string
}

// ParseTriple parses a target triple such as "armv7-unknown-linux-gnueabihf".
func ParseTriple(s string) (Triple, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return Triple{}, fmt.Errorf("%w: %q", ErrMalformedTriple, s)
	}
	for _, p := range parts {
		if p == "" {
			return Triple{}, fmt.Errorf("%w: %q", ErrMalformedTriple, s)
		}
	}
	return Triple{Arch: parts[0], Vendor: parts[1], OS: parts[2], ABI: parts[3]}, nil
}

func (t Triple) String() string {
	return strings.Join([]string{t.Arch, t.Vendor, t.OS, t.ABI}, "-")
}

// HardFloat reports if the ABI uses hardware floating point.
func (t Triple) HardFloat() bool {
	return strings.HasSuffix(t.ABI, "hf")
}

// GoEnv is the set of Go toolchain environment variables to build for a
// target.
type GoEnv struct {
	GOOS   string
	GOARCH string
	GOARM  string
}

// Environ returns the variables as KEY=value pairs, omitting empty ones.
func (e GoEnv) Environ() []string {
	env := []string{"GOOS=" + e.GOOS, "GOARCH=" + e.GOARCH}
	if e.GOARM != "" {
		env = append(env, "GOARM="+e.GOARM)
	}
	return env
}

// GoEnv maps the triple onto the Go toolchain's GOOS, GOARCH, and GOARM.
func (t Triple) GoEnv() (GoEnv, error) {
	env := GoEnv{GOOS: t.OS}
	switch t.Arch {
	case "armv6", "arm":
		env.GOARCH = "arm"
		env.GOARM = "6"
		if !t.HardFloat() {
			env.GOARM = "5"
		}
	case "armv7":
		env.GOARCH = "arm"
		env.GOARM = "7"
	case "aarch64":
		env.GOARCH = "arm64"
	case "x86_64":
		env.GOARCH = "amd64"
	case "i686":
		env.GOARCH = "386"
	default:
		return GoEnv{}, fmt.Errorf("%w: %s", ErrUnsupportedArch, t.Arch)
	}
	return env, nil
}

// ArtifactPath returns the slash-separated path, relative to the repository
// root, where the release build writes the binary for the triple.
func ArtifactPath(t Triple, binary string) string {
	return path.Join("target", t.String(), "release", binary)
}

// FromRuntime returns the triple the running binary was compiled for.
// The vendor is always "unknown", and the ABI is a best guess as Go does not
// record it.
func FromRuntime() Triple {
	return fromGo(runtime.GOOS, runtime.GOARCH, goarm)
}

func fromGo(goos, goarch, arm string) Triple {
	t := Triple{Vendor: "unknown", OS: goos, ABI: "gnu"}
	switch goarch {
	case "arm":
		t.Arch = "armv" + arm
		t.ABI = "gnueabihf"
		if arm == "5" {
			t.Arch = "arm"
			t.ABI = "gnueabi"
		}
	case "arm64":
		t.Arch = "aarch64"
	case "amd64":
		t.Arch = "x86_64"
	case "386":
		t.Arch = "i686"
	default:
		t.Arch = goarch
	}
	return t
}

// IsReleaseTag reports if a Git tag or version string would trigger a
// release build.
func IsReleaseTag(tag string) bool {
	ok, _ := path.Match(ReleaseTagPattern, tag)
	return ok
}
