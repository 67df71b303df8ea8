package image

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	diskfs "github.com/diskfs/go-diskfs"
)

// DiskIO reads and writes files inside raw disk images through go-diskfs.
// It opens the image per call; the image is mutated in place.
type DiskIO struct{}

var _ Writer = DiskIO{}
var _ Reader = DiskIO{}

// WriteFile writes content to loc inside the image, creating the parent
// folder when missing and truncating any existing file.
func (DiskIO) WriteFile(ctx context.Context, imagePath string, loc Location, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d, err := diskfs.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", imagePath, err)
	}
	defer d.Close()

	fs, err := d.GetFilesystem(loc.Partition)
	if err != nil {
		return fmt.Errorf("failed to resolve partition %d of %s: %w", loc.Partition, imagePath, err)
	}

	if dir := path.Dir(loc.Path); dir != "/" && dir != "." {
		if err := fs.Mkdir(dir); err != nil {
			return fmt.Errorf("failed to create %s in partition %d: %w", dir, loc.Partition, err)
		}
	}

	f, err := fs.OpenFile(loc.Path, os.O_CREATE|os.O_RDWR|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open %s in partition %d: %w", loc.Path, loc.Partition, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("failed to write %s in partition %d: %w", loc.Path, loc.Partition, err)
	}
	return nil
}

// ReadFile returns the content of loc inside the image.
func (DiskIO) ReadFile(ctx context.Context, imagePath string, loc Location) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := diskfs.Open(imagePath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", imagePath, err)
	}
	defer d.Close()

	fs, err := d.GetFilesystem(loc.Partition)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve partition %d of %s: %w", loc.Partition, imagePath, err)
	}

	f, err := fs.OpenFile(loc.Path, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s in partition %d: %w", loc.Path, loc.Partition, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s in partition %d: %w", loc.Path, loc.Partition, err)
	}
	return data, nil
}
