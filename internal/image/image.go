// Package image abstracts reads and writes of files inside a balenaOS disk
// image. The disk image is exclusively owned by the current provisioning run;
// concurrent runs against the same image file are not supported.
package image

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aniongithub/balena-cli/internal/devicetype"
)

const (
	// BootPartition is the 1-based index of the boot partition, where all
	// boot-time configuration files live.
	BootPartition = 1

	// ConnectionsDir is the folder inside the boot partition that holds
	// injected NetworkManager connection profiles.
	ConnectionsDir = "/system-connections"

	// DefaultConfigPath is where the config descriptor goes when the
	// manifest does not declare a location.
	DefaultConfigPath = "/config.json"
)

// Location identifies one file inside an image: a 1-based partition index and
// an absolute path within that partition's filesystem.
type Location struct {
	Partition int
	Path      string
}

func (l Location) String() string {
	return fmt.Sprintf("partition %d, %s", l.Partition, l.Path)
}

// ConfigLocation returns the manifest-defined location of the config
// descriptor, falling back to config.json in the boot partition.
func ConfigLocation(m *devicetype.Manifest) Location {
	loc := Location{Partition: BootPartition, Path: DefaultConfigPath}
	if m == nil || m.Configuration == nil {
		return loc
	}
	if p := m.Configuration.Config.Partition; p > 0 {
		loc.Partition = p
	}
	if p := m.Configuration.Config.Path; p != "" {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		loc.Path = p
	}
	return loc
}

// ConnectionLocation returns where a connection profile read from srcPath is
// written: the boot partition's connections folder, filename preserved from
// the source file's base name.
func ConnectionLocation(srcPath string) Location {
	return Location{
		Partition: BootPartition,
		Path:      path.Join(ConnectionsDir, filepath.Base(srcPath)),
	}
}

// Writer writes one file into a disk image. Implementations resolve the
// partition and create missing parent folders; failure to resolve either is
// an error.
type Writer interface {
	WriteFile(ctx context.Context, imagePath string, loc Location, content []byte) error
}

// Reader reads one file out of a disk image. A missing file is an error.
type Reader interface {
	ReadFile(ctx context.Context, imagePath string, loc Location) ([]byte, error)
}
