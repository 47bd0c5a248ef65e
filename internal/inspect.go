package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sensiblebit/keyboxgen"
)

// Slot states reported by inspection.
const (
	SlotPopulated = "populated"
	SlotEmpty     = "empty"
	SlotAbsent    = "absent"
	SlotInvalid   = "invalid"
)

// InspectResult describes one slot as it would be generated.
type InspectResult struct {
	Slot   string `json:"slot"`
	Status string `json:"status"`
	Length int    `json:"length"`
	SHA256 string `json:"sha256_fingerprint,omitempty"`
	Error  string `json:"error,omitempty"`
}

// InspectReport is the outcome of inspecting a keybox directory without
// writing anything.
type InspectReport struct {
	Manifest          string          `json:"manifest"`
	Slots             []InspectResult `json:"slots"`
	ExtraCertificates int             `json:"extra_certificates"`
}

// InspectManifest scans and decodes the manifest under cfg.KeyboxDir and
// reports per-slot status.
func InspectManifest(cfg *Config) (*InspectReport, error) {
	path, m, slots, err := LoadSlots(cfg)
	if err != nil {
		return nil, err
	}
	report := &InspectReport{Manifest: path, ExtraCertificates: m.ExtraCertificates()}
	for _, s := range slots {
		report.Slots = append(report.Slots, inspectSlot(s))
	}
	return report, nil
}

func inspectSlot(s keyboxgen.Slot) InspectResult {
	r := InspectResult{Slot: s.Name}
	switch {
	case !s.Entry.Present:
		r.Status = SlotAbsent
	case s.Entry.Err != nil:
		r.Status = SlotInvalid
		r.Error = s.Entry.Err.Error()
	case len(s.Entry.Bytes) == 0:
		r.Status = SlotEmpty
	default:
		r.Status = SlotPopulated
		r.Length = len(s.Entry.Bytes)
		r.SHA256 = Fingerprint(s.Entry.Bytes)
	}
	return r
}

// Fingerprint returns the SHA-256 of data as a lowercase hex string.
func Fingerprint(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// FormatInspectReport formats an inspection report as text or JSON.
func FormatInspectReport(report *InspectReport, format string) (string, error) {
	switch format {
	case "text":
		return formatInspectText(report), nil
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(data) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use text or json)", format)
	}
}

func formatInspectText(report *InspectReport) string {
	var sb strings.Builder
	populated, invalid, missing := 0, 0, 0
	fmt.Fprintf(&sb, "Manifest: %s\n", report.Manifest)
	for _, r := range report.Slots {
		fmt.Fprintf(&sb, "  %-17s %s", r.Slot+":", r.Status)
		switch r.Status {
		case SlotPopulated:
			populated++
			fmt.Fprintf(&sb, " (%d bytes, sha256 %s)", r.Length, r.SHA256)
		case SlotInvalid:
			invalid++
			fmt.Fprintf(&sb, " (%s)", r.Error)
		default:
			missing++
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Populated %d of %d slot(s)%s\n", populated, len(report.Slots), SlotAnnotation(invalid, missing))
	if report.ExtraCertificates > 0 {
		fmt.Fprintf(&sb, "Ignored %d certificate(s) beyond slot %d\n", report.ExtraCertificates, keyboxgen.MaxCertificateSlots)
	}
	return sb.String()
}
