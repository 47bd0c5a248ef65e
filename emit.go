package keyboxgen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownLanguage is returned for an output language the emitter cannot
// render.
var ErrUnknownLanguage = errors.New("unknown output language")

// MaxCertificateSlots is the number of certificate declarations in every
// generated artifact.
const MaxCertificateSlots = 3

// bytesPerRow is the number of byte values rendered per line.
const bytesPerRow = 10

// PrivateKeySlotName is the declaration name of the private key slot.
const PrivateKeySlotName = "EC_PRIVATE_KEY"

// CertificateSlotName returns the declaration name of the 1-based
// certificate slot n.
func CertificateSlotName(n int) string {
	return fmt.Sprintf("EC_CERTIFICATE_%d", n)
}

// Language selects the syntax of the generated artifact.
type Language string

const (
	LanguageGo   Language = "go"
	LanguageRust Language = "rust"
)

// Languages lists every supported output language.
func Languages() []Language {
	return []Language{LanguageGo, LanguageRust}
}

// ParseLanguage converts a language name to a Language.
func ParseLanguage(name string) (Language, error) {
	switch l := Language(strings.ToLower(name)); l {
	case LanguageGo, LanguageRust:
		return l, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownLanguage, name)
	}
}

// DefaultOutputPath returns the artifact path used when none is configured.
func (l Language) DefaultOutputPath() string {
	if l == LanguageRust {
		return filepath.Join("src", "ec_constants.rs")
	}
	return "ec_constants.go"
}

// EmitOptions controls artifact rendering.
type EmitOptions struct {
	Language Language
	// Package is the Go package clause of the artifact. Ignored for Rust.
	Package string
}

// DefaultPackage is the Go package name used when EmitOptions.Package is
// empty.
const DefaultPackage = "keybox"

// Slot is one named declaration of the artifact.
type Slot struct {
	Name  string
	Entry DecodedEntry
}

// BuildSlots normalizes and decodes the manifest entries into the four fixed
// slots: certificates 1 to 3 in document order, then the private key.
// Certificates past the third are not rendered.
func BuildSlots(m *Manifest) []Slot {
	slots := make([]Slot, 0, MaxCertificateSlots+1)
	for i := range MaxCertificateSlots {
		slot := Slot{Name: CertificateSlotName(i + 1)}
		if i < len(m.Certificates) {
			slot.Entry = DecodePEMText(m.Certificates[i])
		}
		slots = append(slots, slot)
	}

	key := Slot{Name: PrivateKeySlotName}
	if m.PrivateKey != nil {
		key.Entry = DecodePEMText(*m.PrivateKey)
	}
	return append(slots, key)
}

// RenderConstants writes the artifact for slots to w. Slots render in the
// order given; an entry that is not usable renders as an empty value.
func RenderConstants(w io.Writer, slots []Slot, opts EmitOptions) error {
	var buf bytes.Buffer
	switch opts.Language {
	case LanguageGo, "":
		pkg := opts.Package
		if pkg == "" {
			pkg = DefaultPackage
		}
		if !token.IsIdentifier(pkg) {
			return fmt.Errorf("invalid Go package name %q", pkg)
		}
		renderGo(&buf, pkg, slots)
		formatted, err := format.Source(buf.Bytes())
		if err != nil {
			return fmt.Errorf("formatting generated Go source: %w", err)
		}
		buf.Reset()
		buf.Write(formatted)
	case LanguageRust:
		renderRust(&buf, slots)
	default:
		return fmt.Errorf("%w %q", ErrUnknownLanguage, opts.Language)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing generated constants: %w", err)
	}
	return nil
}

// WriteConstants renders slots and writes them to path, replacing any
// previous content. The parent directory is created if needed.
func WriteConstants(path string, slots []Slot, opts EmitOptions) error {
	var buf bytes.Buffer
	if err := RenderConstants(&buf, slots, opts); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// hexRows formats data with verb, one value per byte, bytesPerRow to a row.
func hexRows(data []byte, verb string) [][]string {
	var rows [][]string
	for start := 0; start < len(data); start += bytesPerRow {
		end := min(start+bytesPerRow, len(data))
		row := make([]string, 0, end-start)
		for _, b := range data[start:end] {
			row = append(row, fmt.Sprintf(verb, b))
		}
		rows = append(rows, row)
	}
	return rows
}

func slotBytes(s Slot) []byte {
	if !s.Entry.Usable() {
		return nil
	}
	return s.Entry.Bytes
}

// renderGo declares each slot as an untyped string constant, one quoted
// row of escaped bytes per line, so importers cannot modify the values.
// Callers convert with []byte(NAME).
func renderGo(buf *bytes.Buffer, pkg string, slots []Slot) {
	buf.WriteString("// Code generated by keyboxgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(buf, "package %s\n", pkg)
	for _, s := range slots {
		rows := hexRows(slotBytes(s), `\x%02x`)
		if len(rows) == 0 {
			fmt.Fprintf(buf, "\nconst %s = \"\"\n", s.Name)
			continue
		}
		fmt.Fprintf(buf, "\nconst %s = \"\"", s.Name)
		for _, row := range rows {
			fmt.Fprintf(buf, " +\n\t\"%s\"", strings.Join(row, ""))
		}
		buf.WriteString("\n")
	}
}

func renderRust(buf *bytes.Buffer, slots []Slot) {
	buf.WriteString("// Auto-generated constants\n\n")
	for _, s := range slots {
		rows := hexRows(slotBytes(s), "0x%02x")
		if len(rows) == 0 {
			fmt.Fprintf(buf, "pub const %s: &[u8] = &[];\n\n", s.Name)
			continue
		}
		fmt.Fprintf(buf, "pub const %s: &[u8] = &[\n", s.Name)
		for i, row := range rows {
			if i > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString("    ")
			for _, v := range row {
				buf.WriteString(v + ", ")
			}
		}
		buf.WriteString("\n];\n\n")
	}
}
