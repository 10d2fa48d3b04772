// Package firmware provisions eagle firmware images by name.
package firmware

import (
	"errors"
	"fmt"
	"io/fs"
)

// Image names, one per bring-up path. The constants are named after the
// path that loads them; the file names come from the vendor firmware
// package and do not line up with those paths.
const (
	// NameFirstInit is loaded on first init. The vendor ships it as the
	// "ate_config" image.
	NameFirstInit = "eagle_fw_ate_config_v19.bin"
	// NameSecondInit is loaded on re-init. The vendor ships it as the
	// "first_init" image.
	NameSecondInit = "eagle_fw_first_init_v19.bin"
	// NameATEConfig is loaded for the wiring test (ate_config 1). The
	// vendor ships it as the "second_init" image.
	NameATEConfig = "eagle_fw_second_init_v19.bin"
)

// DefaultPath is where images are looked up when no path is configured.
const DefaultPath = "/lib/firmware"

// ErrNotFound is returned when the requested image does not exist.
var ErrNotFound = errors.New("firmware not found")

// Blob is a provisioned image. Its data is only valid until Release.
type Blob struct {
	Name string
	Data []byte

	release func()
}

// Release returns the blob to the provider. Data must not be used afterwards.
func (b *Blob) Release() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.Data = nil
}

// Provider looks up firmware images by name.
type Provider interface {
	Request(name string) (*Blob, error)
}

// FS serves images from a file system, typically os.DirFS(DefaultPath).
type FS struct {
	fsys fs.FS
}

// NewFS returns a provider over fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Request reads the named image.
func (p *FS) Request(name string) (*Blob, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}

	data, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read firmware %s: %w", name, err)
	}

	return &Blob{Name: name, Data: data}, nil
}
