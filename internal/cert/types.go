package cert

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"net"
	"time"
)

// FileType represents the detected type of a certificate-related file.
type FileType string

const (
	FileTypeCert    FileType = "cert"
	FileTypePFX     FileType = "pfx"
	FileTypeDER     FileType = "der"
	FileTypeUnknown FileType = "unknown"
)

// NoPathLenConstraint leaves the path length of a CA unbounded.
const NoPathLenConstraint = -1

// BasicConstraints marks a certificate as a CA.
type BasicConstraints struct {
	// MaxPathLen is the number of intermediate CAs allowed below this one.
	// Use NoPathLenConstraint to omit the constraint.
	MaxPathLen int
	Critical   bool
}

// KeyUsagePolicy is attached verbatim as the key usage extension.
type KeyUsagePolicy struct {
	Usage    x509.KeyUsage
	Critical bool
}

// ExtKeyUsagePolicy lists the purposes a certificate may be used for.
type ExtKeyUsagePolicy struct {
	OIDs     []asn1.ObjectIdentifier
	Critical bool
}

// SANPolicy controls what happens when a request carries no DNS names and no
// IP addresses.
type SANPolicy int

const (
	// OmitEmptySAN leaves the extension out entirely.
	OmitEmptySAN SANPolicy = iota
	// EmitEmptySAN writes an empty GeneralNames sequence.
	EmitEmptySAN
)

// ExistingFilePolicy decides what happens when the target PFX already exists.
type ExistingFilePolicy int

const (
	// SkipExisting leaves the existing file untouched and reports success.
	SkipExisting ExistingFilePolicy = iota
	// FailIfExists returns an *OutputExistsError.
	FailIfExists
)

// Export describes where and how an issued certificate is written as PFX.
type Export struct {
	Dir      string
	Password string
	IfExists ExistingFilePolicy
}

// Issuer selects who signs a certificate. The zero value is self-signed.
type Issuer struct {
	parent *IssuedCertificate
	set    bool
}

// SelfSigned signs the certificate with its own freshly generated key.
func SelfSigned() Issuer { return Issuer{} }

// SignedBy signs the certificate with parent's private key.
func SignedBy(parent *IssuedCertificate) Issuer {
	return Issuer{parent: parent, set: true}
}

// IsSelfSigned reports whether no parent was chosen.
func (i Issuer) IsSelfSigned() bool { return !i.set }

// Parent returns the signing certificate, or nil for self-signed issuance.
func (i Issuer) Parent() *IssuedCertificate { return i.parent }

// Request is the input to issuance.
type Request struct {
	SubjectName  string
	FriendlyName string
	KeyBits      int

	// ValidFrom defaults to the engine clock. The certificate's NotBefore is
	// backdated from it by the engine's clock-skew margin.
	ValidFrom time.Time
	ValidTo   time.Time

	DNSNames    []string
	IPAddresses []net.IP
	EmptySAN    SANPolicy

	// Constraints is nil for leaf certificates.
	Constraints *BasicConstraints
	KeyUsage    *KeyUsagePolicy
	ExtKeyUsage *ExtKeyUsagePolicy

	// SerialNumber is big-endian. Nil means a random 128-bit serial.
	SerialNumber []byte

	// Hash is the signature digest; zero uses the engine default.
	Hash crypto.Hash

	Issuer Issuer

	// Export is nil for in-memory issuance.
	Export *Export
}

// IsCertificateAuthority reports whether the request asks for a CA certificate.
func (r Request) IsCertificateAuthority() bool { return r.Constraints != nil }

// IssuedCertificate is a signed certificate plus the private key of its
// holder, when the holder has it.
type IssuedCertificate struct {
	FriendlyName string
	Certificate  *x509.Certificate
	PrivateKey   *rsa.PrivateKey
}

// Raw returns the DER-encoded, signed certificate.
func (c *IssuedCertificate) Raw() []byte {
	if c == nil || c.Certificate == nil {
		return nil
	}
	return c.Certificate.Raw
}

func (c *IssuedCertificate) HasPrivateKey() bool {
	return c != nil && c.PrivateKey != nil
}

// PublicKey returns the certificate's RSA public key.
func (c *IssuedCertificate) PublicKey() (*rsa.PublicKey, error) {
	if c == nil || c.Certificate == nil {
		return nil, fmt.Errorf("%w: no certificate", ErrInvalidRequest)
	}
	pub, ok := c.Certificate.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return pub, nil
}

// WithPrivateKey returns a copy of c paired with key. A certificate produced
// by signing with someone else's key does not carry its own private key; this
// is the step that attaches it. The key must match the certificate.
func (c *IssuedCertificate) WithPrivateKey(key *rsa.PrivateKey) (*IssuedCertificate, error) {
	if key == nil {
		return nil, ErrMissingPrivateKey
	}
	pub, err := c.PublicKey()
	if err != nil {
		return nil, err
	}
	if !pub.Equal(&key.PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate", ErrInvalidRequest)
	}
	return &IssuedCertificate{
		FriendlyName: c.FriendlyName,
		Certificate:  c.Certificate,
		PrivateKey:   key,
	}, nil
}

// PublicOnly returns a copy of c without its private key.
func (c *IssuedCertificate) PublicOnly() *IssuedCertificate {
	return &IssuedCertificate{FriendlyName: c.FriendlyName, Certificate: c.Certificate}
}

// SaveResult reports where a PFX was written, or would have been.
type SaveResult struct {
	Path    string
	Written bool
}

// CertSummary holds the properties shown for a certificate.
type CertSummary struct {
	FriendlyName       string
	Subject            string
	Issuer             string
	NotBefore          time.Time
	NotAfter           time.Time
	Serial             string
	SANs               []string
	SignatureAlgorithm string
	PublicKeyInfo      string
	KeyUsage           []string
	ExtKeyUsage        []string
	IsCA               bool
	MaxPathLen         int // NoPathLenConstraint when unbounded or not a CA
	IsSelfSigned       bool
	HasPrivateKey      bool
	Fingerprint        string
}

// VerifyResult holds the result of a chain verification.
type VerifyResult struct {
	Valid   bool
	Output  string
	Details string // additional diagnostic info
}
