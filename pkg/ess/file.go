package ess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/levenlabs/go-lflag"
	"github.com/tousync/tousync/pkg/log"
	"github.com/tousync/tousync/pkg/types"
)

// File implements System by writing the tariff envelope to
// <dir>/<siteID>.json for whatever pushes it to the battery.
type File struct {
	dir string
}

// NewFile returns a File writing into dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// configuredFile sets up flags for File and returns the instance.
func configuredFile() *File {
	f := NewFile("")
	dir := lflag.String("tariff-output-dir", "", "Directory to write <siteID>.json tariff envelopes to")

	lflag.Do(func() {
		f.dir = *dir
	})

	return f
}

// Validate ensures the configuration is valid.
func (f *File) Validate() error {
	if f.dir == "" {
		return errors.New("tariff-output-dir is required")
	}
	return nil
}

// SetTariff writes the envelope for the site. The file is replaced
// atomically and left alone if the content is unchanged.
func (f *File) SetTariff(ctx context.Context, siteID string, doc types.TariffDocument) error {
	if siteID == "" || filepath.Base(siteID) != siteID {
		return fmt.Errorf("invalid site id: %q", siteID)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	b, err := json.Marshal(Envelope(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal tariff: %w", err)
	}
	b = append(b, '\n')

	path := filepath.Join(f.dir, siteID+".json")
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, b) {
		log.Ctx(ctx).DebugContext(ctx, "tariff unchanged", slog.String("path", path))
		return nil
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tariff-output-dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, "."+siteID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp tariff file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tariff: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write tariff: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace tariff %s: %w", path, err)
	}

	log.Ctx(ctx).InfoContext(
		ctx,
		"wrote tariff",
		slog.String("path", path),
		slog.String("code", doc.Code),
		slog.Int("bytes", len(b)),
	)
	return nil
}
