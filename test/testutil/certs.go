package testutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// CertPair holds paths to a generated PEM certificate and its PEM key.
type CertPair struct {
	CertPath string
	KeyPath  string
	Dir      string
}

// caTemplate describes a self-signed CA usable as a trust anchor and as a
// foreign issuer.
func caTemplate(cn string, serial int64) *x509.Certificate {
	return &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"CertForge Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
}

func selfSign(t *testing.T, tmpl *x509.Certificate, pub any, priv crypto.Signer) []byte {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	if err != nil {
		t.Fatalf("create certificate %s: %v", tmpl.Subject.CommonName, err)
	}
	return der
}

func writePEM(t *testing.T, path, blockType string, der []byte, perm os.FileMode) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MakeCertPair writes a 2048-bit RSA CA certificate (test.pem) and its
// PKCS#1 key (test.key) to a temp directory.
func MakeCertPair(t *testing.T) *CertPair {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := caTemplate("test.local", 1)
	tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

	p := &CertPair{Dir: t.TempDir()}
	p.CertPath = filepath.Join(p.Dir, "test.pem")
	p.KeyPath = filepath.Join(p.Dir, "test.key")
	writePEM(t, p.CertPath, "CERTIFICATE", selfSign(t, tmpl, &key.PublicKey, key), 0o644)
	writePEM(t, p.KeyPath, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), 0o600)
	return p
}

// MakeECCertPair is MakeCertPair with a P-256 key, for non-RSA paths.
func MakeECCertPair(t *testing.T) *CertPair {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate EC key: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal EC key: %v", err)
	}

	p := &CertPair{Dir: t.TempDir()}
	p.CertPath = filepath.Join(p.Dir, "ec-test.pem")
	p.KeyPath = filepath.Join(p.Dir, "ec-test.key")
	writePEM(t, p.CertPath, "CERTIFICATE", selfSign(t, caTemplate("ec-test.local", 1), &key.PublicKey, key), 0o644)
	writePEM(t, p.KeyPath, "EC PRIVATE KEY", keyDER, 0o600)
	return p
}

// MakeDERCert converts a PEM certificate file to DER in a temp directory.
func MakeDERCert(t *testing.T, pemPath string) string {
	t.Helper()

	data, err := os.ReadFile(pemPath)
	if err != nil {
		t.Fatalf("read pem: %v", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatalf("no PEM block in %s", pemPath)
	}
	return WriteFile(t, "test.der", block.Bytes)
}

// MakeRSAIssuer returns an in-memory RSA CA made with crypto/x509 directly,
// for issuers the package under test did not produce.
func MakeRSAIssuer(t *testing.T, commonName string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c, err := x509.ParseCertificate(selfSign(t, caTemplate(commonName, 42), &key.PublicKey, key))
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return c, key
}

// WriteFile writes data to name inside a fresh temp directory and returns the path.
func WriteFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
