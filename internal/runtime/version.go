package runtime

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// hostGatewayConstraints lists the first release of each runtime that
// resolves the special "host-gateway" target in --add-host.
var hostGatewayConstraints = map[string]string{
	string(RuntimePodman): ">= 5.3.0-0",
	string(RuntimeDocker): ">= 20.10.0-0",
	string(RuntimeEngine): ">= 20.10.0-0",
}

// SupportsHostGateway reports whether the given runtime version maps
// "host-gateway" to the host. Runtimes without a known constraint are
// assumed to support it.
func SupportsHostGateway(runtimeName, version string) (bool, error) {
	constraint, ok := hostGatewayConstraints[runtimeName]
	if !ok {
		return true, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(normalizeVersion(version))
	if err != nil {
		return false, fmt.Errorf("unparseable %s version %q: %w", runtimeName, version, err)
	}

	return c.Check(v), nil
}

// normalizeVersion strips distribution suffixes such as "+dfsg1" or
// "-ce" that some packaged builds append.
func normalizeVersion(version string) string {
	v := strings.TrimSpace(version)
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSuffix(v, "-ce")
}
