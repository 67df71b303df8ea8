package devicetype

import "errors"

// ErrIncompatibleDeviceType is returned when an override device type cannot
// run an application declared for a different device type.
var ErrIncompatibleDeviceType = errors.New("incompatible device type")

// osArchCompat maps an OS architecture to the application architectures it
// can additionally run. Same-arch pairs are always compatible.
var osArchCompat = map[string][]string{
	"aarch64": {"armv7hf", "rpi"},
	"armv7hf": {"rpi"},
}

// AreCompatible reports whether an OS built for device type os can run an
// application declared for device type app. Compatibility requires the same
// architecture family: an architecture runs itself, and 64-bit ARM runs the
// 32-bit ARM families below it.
func AreCompatible(os, app *Manifest) bool {
	if os == nil || app == nil {
		return false
	}
	if os.Arch == app.Arch {
		return true
	}
	for _, arch := range osArchCompat[os.Arch] {
		if arch == app.Arch {
			return true
		}
	}
	return false
}
