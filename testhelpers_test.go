package keyboxgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"
)

// testCredential is a self-signed EC certificate and its key in both PEM and
// DER form.
type testCredential struct {
	certPEM string
	certDER []byte
	keyPEM  string
	keyDER  []byte
}

// newECCredential generates a P-256 key and a self-signed certificate for it.
func newECCredential(t *testing.T, cn string) testCredential {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return testCredential{
		certPEM: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})),
		certDER: certDER,
		keyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})),
		keyDER:  keyDER,
	}
}

// pemWrap wraps a base64 body in PEM delimiter lines the way keybox files
// carry them.
func pemWrap(blockType, body string) string {
	return fmt.Sprintf("\n-----BEGIN %s-----\n%s\n-----END %s-----\n", blockType, body, blockType)
}

// testKey renders a Key element. An empty algorithm omits the attribute and
// an empty privateKey omits the PrivateKey element. Bodies are base64 and get
// PEM-wrapped.
func testKey(algorithm string, certs []string, privateKey string) string {
	var b strings.Builder
	if algorithm == "" {
		b.WriteString("<Key>\n")
	} else {
		fmt.Fprintf(&b, "<Key algorithm=%q>\n", algorithm)
	}
	if privateKey != "" {
		fmt.Fprintf(&b, "<PrivateKey format=\"pem\">%s</PrivateKey>\n", pemWrap("EC PRIVATE KEY", privateKey))
	}
	fmt.Fprintf(&b, "<CertificateChain>\n<NumberOfCertificates>%d</NumberOfCertificates>\n", len(certs))
	for _, c := range certs {
		fmt.Fprintf(&b, "<Certificate format=\"pem\">%s</Certificate>\n", pemWrap("CERTIFICATE", c))
	}
	b.WriteString("</CertificateChain>\n</Key>\n")
	return b.String()
}

// testKeybox wraps Key elements in a keybox document.
func testKeybox(keys ...string) string {
	return `<?xml version="1.0"?>
<AndroidAttestation>
<NumberOfKeyboxes>1</NumberOfKeyboxes>
<Keybox DeviceID="test-device">
` + strings.Join(keys, "") + `</Keybox>
</AndroidAttestation>
`
}

// b64 is shorthand for standard base64 encoding in test tables.
func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
