package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"github.com/sensiblebit/keyboxgen"
)

// ErrInvalidPath is returned when the resolved manifest path is not valid
// UTF-8.
var ErrInvalidPath = errors.New("manifest path is not valid UTF-8")

// SlotStatus summarizes one generated declaration.
type SlotStatus struct {
	Name    string
	Present bool
	Length  int
	Err     error
}

// Result reports what a generation run wrote.
type Result struct {
	ManifestPath      string
	OutputPath        string
	Slots             []SlotStatus
	ExtraCertificates int
}

// ManifestPath returns the keybox.xml path inside dir. The result must be
// valid UTF-8.
func ManifestPath(dir string) (string, error) {
	if dir == "" {
		return "", ErrMissingKeyboxDir
	}
	path := filepath.Join(dir, keyboxgen.ManifestFileName)
	if !utf8.ValidString(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return path, nil
}

// LoadSlots resolves the manifest under cfg.KeyboxDir, scans it, and decodes
// its entries into the fixed slots.
func LoadSlots(cfg *Config) (string, *keyboxgen.Manifest, []keyboxgen.Slot, error) {
	path, err := ManifestPath(cfg.KeyboxDir)
	if err != nil {
		return "", nil, nil, err
	}
	m, err := keyboxgen.ReadManifest(path)
	if err != nil {
		return "", nil, nil, err
	}
	slots := keyboxgen.BuildSlots(m)
	for _, s := range slots {
		if s.Entry.Present && s.Entry.Err != nil {
			slog.Warn("Skipping undecodable entry, emitting empty value", "slot", s.Name, "error", s.Entry.Err)
		}
	}
	if extra := m.ExtraCertificates(); extra > 0 {
		slog.Warn("Ignoring certificates beyond the available slots", "extra", extra, "slots", keyboxgen.MaxCertificateSlots)
	}
	return path, m, slots, nil
}

// Generate runs the whole pipeline: resolve the manifest path, scan, decode,
// and write the artifact to cfg.OutputPath. Any returned error means the
// artifact must not be trusted.
func Generate(ctx context.Context, cfg *Config) (*Result, error) {
	path, m, slots, err := LoadSlots(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := keyboxgen.WriteConstants(cfg.OutputPath, slots, cfg.Emit); err != nil {
		return nil, fmt.Errorf("generating constants: %w", err)
	}

	result := &Result{
		ManifestPath:      path,
		OutputPath:        cfg.OutputPath,
		ExtraCertificates: m.ExtraCertificates(),
	}
	for _, s := range slots {
		result.Slots = append(result.Slots, SlotStatus{
			Name:    s.Name,
			Present: s.Entry.Present,
			Length:  len(s.Entry.Bytes),
			Err:     s.Entry.Err,
		})
	}
	slog.Info("Generated EC constants", "manifest", path, "output", cfg.OutputPath, "language", cfg.Emit.Language, "populated", result.Populated())
	return result, nil
}

// Populated returns the number of slots rendered with bytes.
func (r *Result) Populated() int {
	n := 0
	for _, s := range r.Slots {
		if s.Present && s.Err == nil && s.Length > 0 {
			n++
		}
	}
	return n
}
