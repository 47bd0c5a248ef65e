// Package keyboxgen extracts EC certificates and the private key from a
// keybox XML manifest and renders them as fixed-name byte constant declarations
// for inclusion in a build.
package keyboxgen

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrMalformedManifest is wrapped by ScanManifest when the input is not
// well-formed XML.
var ErrMalformedManifest = errors.New("malformed keybox manifest")

// ManifestFileName is the fixed name of the manifest inside the keybox
// directory.
const ManifestFileName = "keybox.xml"

const (
	elemKey         = "Key"
	elemCertificate = "Certificate"
	elemPrivateKey  = "PrivateKey"
	attrAlgorithm   = "algorithm"

	// AlgorithmECDSA is the Key algorithm attribute value selected for
	// extraction.
	AlgorithmECDSA = "ecdsa"
)

// Manifest holds the raw PEM text extracted from EC-gated Key elements.
type Manifest struct {
	// Certificates are in document order. All are kept; only the first
	// MaxCertificateSlots reach the generated artifact.
	Certificates []string
	// PrivateKey is nil when no EC private key was found. A repeated
	// PrivateKey element replaces the earlier one.
	PrivateKey *string
}

// ExtraCertificates returns how many certificates were found beyond the
// slots the emitter renders.
func (m *Manifest) ExtraCertificates() int {
	if n := len(m.Certificates) - MaxCertificateSlots; n > 0 {
		return n
	}
	return 0
}

type scanState int

const (
	stateIdle scanState = iota
	stateECKey
	stateECKeyCert
	stateECKeyPrivKey
)

func (s scanState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateECKey:
		return "in_ec_key"
	case stateECKeyCert:
		return "in_ec_key.in_cert"
	case stateECKeyPrivKey:
		return "in_ec_key.in_privkey"
	default:
		return fmt.Sprintf("scanState(%d)", int(s))
	}
}

// scanner is the per-invocation state machine driven by XML tokens.
type scanner struct {
	state    scanState
	captured strings.Builder
	manifest Manifest
}

func (s *scanner) start(el xml.StartElement) {
	switch el.Name.Local {
	case elemKey:
		if s.state == stateIdle && hasECAlgorithm(el.Attr) {
			s.state = stateECKey
		}
	case elemCertificate:
		if s.state == stateECKey {
			s.state = stateECKeyCert
			s.captured.Reset()
		}
	case elemPrivateKey:
		if s.state == stateECKey {
			s.state = stateECKeyPrivKey
			s.captured.Reset()
		}
	}
}

func (s *scanner) end(el xml.EndElement) {
	switch el.Name.Local {
	case elemKey:
		s.commit()
		s.state = stateIdle
	case elemCertificate:
		if s.state == stateECKeyCert {
			s.commit()
			s.state = stateECKey
		}
	case elemPrivateKey:
		if s.state == stateECKeyPrivKey {
			s.commit()
			s.state = stateECKey
		}
	}
}

func (s *scanner) text(data xml.CharData) {
	if s.state == stateECKeyCert || s.state == stateECKeyPrivKey {
		s.captured.Write(data)
	}
}

// commit stores the text captured in the current substate. Whitespace-only
// captures are treated as absent.
func (s *scanner) commit() {
	text := s.captured.String()
	s.captured.Reset()
	if strings.TrimSpace(text) == "" {
		return
	}
	switch s.state {
	case stateECKeyCert:
		s.manifest.Certificates = append(s.manifest.Certificates, text)
	case stateECKeyPrivKey:
		if s.manifest.PrivateKey != nil {
			slog.Debug("Replacing earlier EC private key with later entry")
		}
		s.manifest.PrivateKey = &text
	}
}

func hasECAlgorithm(attrs []xml.Attr) bool {
	for _, a := range attrs {
		if a.Name.Local == attrAlgorithm && a.Value == AlgorithmECDSA {
			return true
		}
	}
	return false
}

// ScanManifest reads a keybox XML document in a single forward pass and
// returns the PEM text of every certificate and the private key found inside
// Key elements whose algorithm is ecdsa. Content of other Key elements is
// ignored. Documents declaring a non-UTF-8 encoding are transcoded.
//
// The document must have exactly one root element with nothing but
// whitespace, comments, and processing instructions around it.
func ScanManifest(r io.Reader) (*Manifest, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	s := &scanner{}
	depth := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && sawRoot {
				return nil, fmt.Errorf("%w: element <%s> after the root element", ErrMalformedManifest, t.Name.Local)
			}
			sawRoot = true
			depth++
			s.start(t)
		case xml.EndElement:
			depth--
			s.end(t)
		case xml.CharData:
			if depth == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside the root element", ErrMalformedManifest)
				}
				continue
			}
			s.text(t)
		case xml.Directive:
			if sawRoot && depth == 0 {
				return nil, fmt.Errorf("%w: directive after the root element", ErrMalformedManifest)
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedManifest)
	}
	return &s.manifest, nil
}

// ReadManifest opens and scans the manifest at path. A manifest that cannot
// be opened means no credentials were provisioned: the result is an empty
// Manifest and no error.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Info("No keybox manifest available, generating empty constants", "path", path, "reason", err)
		return &Manifest{}, nil
	}
	defer f.Close()

	m, err := ScanManifest(f)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	slog.Debug("Scanned keybox manifest", "path", path, "certificates", len(m.Certificates), "private_key", m.PrivateKey != nil)
	return m, nil
}
