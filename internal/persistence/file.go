package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/congo-pay/economy/internal/money"
)

// FileBackend keeps a mapping in a single YAML document:
//
//	0b7c5e2a-5d1c-4f0e-9d1e-0d0f1e6b3c11: "120.50"
//
// A missing file loads as an empty mapping. Writes go to a temp file in the
// same directory which is synced and renamed over the target.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend stored at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the backing file location.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(_ context.Context) (map[string]money.Amount, error) {
	state := make(map[string]money.Amount)

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, b.path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, b.path, err)
	}
	if len(doc.Content) == 0 {
		return state, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: decode %s: expected a mapping", ErrPersistence, b.path)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1].Value
		// Older files hold floating point values; round them onto the cent grid.
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: key %s: %w", ErrPersistence, b.path, key, err)
		}
		state[key] = money.FromDecimal(d)
	}
	return state, nil
}

func (b *FileBackend) Commit(_ context.Context, state map[string]money.Amount, _ ...Change) error {
	out := make(map[string]string, len(state))
	for k, v := range state {
		out[k] = v.String()
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersistence, b.path, err)
	}
	if err := writeFileAtomic(b.path, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, b.path, err)
	}
	return nil
}

// Ping verifies the data directory is still writable.
func (b *FileBackend) Ping(_ context.Context) error {
	dir := filepath.Dir(b.path)
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("%w: %s not writable: %w", ErrPersistence, dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (b *FileBackend) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
