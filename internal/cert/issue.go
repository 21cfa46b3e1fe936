package cert

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	MinKeyBits = 1024
	MaxKeyBits = 16384
)

// RootKeyUsage is applied to root CAs whose request carries no key usage.
const RootKeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature

// IssueRootCA creates a self-signed CA certificate. Basic constraints are
// always CA=true, path length 0, critical.
func (e *Engine) IssueRootCA(ctx context.Context, req Request) (*IssuedCertificate, error) {
	if !req.Issuer.IsSelfSigned() {
		return nil, invalidRequest("root CA must be self-signed")
	}
	req.Constraints = &BasicConstraints{MaxPathLen: 0, Critical: true}
	if req.KeyUsage == nil {
		req.KeyUsage = &KeyUsagePolicy{Usage: RootKeyUsage, Critical: true}
	}
	return e.issue(ctx, req)
}

// IssueCertificate creates a certificate signed by req.Issuer, or
// self-signed when no issuer is set.
func (e *Engine) IssueCertificate(ctx context.Context, req Request) (*IssuedCertificate, error) {
	return e.issue(ctx, req)
}

func (e *Engine) issue(ctx context.Context, req Request) (*IssuedCertificate, error) {
	log := zerolog.Ctx(ctx).With().Str("subject", req.SubjectName).Logger()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	parent, err := resolveIssuer(req.Issuer)
	if err != nil {
		return nil, err
	}

	hash := req.Hash
	if hash == 0 {
		hash = e.hash
	}
	sigAlg, err := signatureAlgorithm(hash)
	if err != nil {
		return nil, err
	}

	serial, err := e.serialNumber(req.SerialNumber)
	if err != nil {
		return nil, err
	}

	exts, err := buildExtensions(req)
	if err != nil {
		return nil, err
	}

	validFrom := req.ValidFrom
	if validFrom.IsZero() {
		validFrom = e.now()
	}
	if !validFrom.Before(req.ValidTo) {
		return nil, invalidRequest("validity start %s is not before end %s",
			validFrom.UTC().Format(time.RFC3339), req.ValidTo.UTC().Format(time.RFC3339))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	key, err := e.generateKey(req.KeyBits)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bits", req.KeyBits).Dur("duration", time.Since(started)).Msg("generated key")

	tmpl := &x509.Certificate{
		SerialNumber:       serial,
		Subject:            pkix.Name{CommonName: req.SubjectName},
		NotBefore:          validFrom.Add(-e.skew).UTC().Truncate(time.Second),
		NotAfter:           req.ValidTo.UTC().Truncate(time.Second),
		SignatureAlgorithm: sigAlg,
		ExtraExtensions:    exts,
		// IsCA only drives subject key ID generation here; the encoded basic
		// constraints come from ExtraExtensions.
		IsCA: req.IsCertificateAuthority(),
	}

	signerCert, signerKey := tmpl, key
	if parent != nil {
		signerCert, signerKey = parent.Certificate, parent.PrivateKey
		if !parent.Certificate.IsCA {
			log.Warn().Str("issuer", parent.Certificate.Subject.String()).Msg("issuer is not a CA; chain will not verify")
		}
	}

	der, err := x509.CreateCertificate(e.rand, tmpl, signerCert, &key.PublicKey, signerKey)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	c, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	friendly := req.FriendlyName
	if strings.TrimSpace(friendly) == "" {
		friendly = req.SubjectName
	}
	signed := &IssuedCertificate{FriendlyName: friendly, Certificate: c}

	// The signed certificate only carries the public half of the new key.
	issued, err := signed.WithPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("attach private key: %w", err)
	}

	log.Info().
		Str("issuer", c.Issuer.String()).
		Str("serial", formatSerial(c.SerialNumber)).
		Time("not_after", c.NotAfter).
		Bool("ca", c.IsCA).
		Msg("issued certificate")

	if req.Export != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.SavePFX(issued, *req.Export)
		if err != nil {
			return nil, err
		}
		if res.Written {
			log.Info().Str("path", res.Path).Msg("wrote pfx")
		} else {
			log.Debug().Str("path", res.Path).Msg("pfx exists, left untouched")
		}
	}

	return issued, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.SubjectName) == "" {
		return invalidRequest("subject name required")
	}
	if strings.TrimSpace(req.SubjectName) != req.SubjectName {
		return invalidRequest("subject name %q has leading or trailing spaces", req.SubjectName)
	}
	if req.Export != nil {
		// The PFX is named after the subject; reject unusable names before key generation.
		if _, err := PFXPath(req.Export.Dir, req.SubjectName); err != nil {
			return err
		}
	}
	if req.ValidTo.IsZero() {
		return invalidRequest("validity end required")
	}
	if req.KeyBits < MinKeyBits || req.KeyBits > MaxKeyBits || req.KeyBits%8 != 0 {
		return fmt.Errorf("%w: unsupported key size %d (want a multiple of 8 in %d..%d)",
			ErrKeyGeneration, req.KeyBits, MinKeyBits, MaxKeyBits)
	}
	return nil
}

func resolveIssuer(i Issuer) (*IssuedCertificate, error) {
	if i.IsSelfSigned() {
		return nil, nil
	}
	parent := i.Parent()
	if parent == nil || parent.Certificate == nil {
		return nil, fmt.Errorf("%w: no issuer certificate", ErrInvalidIssuer)
	}
	if parent.PrivateKey == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIssuer, parent.Certificate.Subject)
	}
	pub, err := parent.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
	}
	if !pub.Equal(&parent.PrivateKey.PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match %s", ErrInvalidIssuer, parent.Certificate.Subject)
	}
	return parent, nil
}

func signatureAlgorithm(h crypto.Hash) (x509.SignatureAlgorithm, error) {
	switch h {
	case crypto.SHA256:
		return x509.SHA256WithRSA, nil
	case crypto.SHA384:
		return x509.SHA384WithRSA, nil
	case crypto.SHA512:
		return x509.SHA512WithRSA, nil
	default:
		return x509.UnknownSignatureAlgorithm, invalidRequest("unsupported signature hash %v", h)
	}
}

// ParseHash maps "sha256", "SHA-384", etc. to a crypto.Hash.
func ParseHash(s string) (crypto.Hash, error) {
	switch normalizeName(s) {
	case "sha256":
		return crypto.SHA256, nil
	case "sha384":
		return crypto.SHA384, nil
	case "sha512":
		return crypto.SHA512, nil
	default:
		return 0, invalidRequest("unsupported hash %q", s)
	}
}

func (e *Engine) generateKey(bits int) (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(e.rand, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bits: %v", ErrKeyGeneration, bits, err)
	}
	return key, nil
}

// serialNumber returns the requested serial, or a random 128-bit one.
func (e *Engine) serialNumber(b []byte) (*big.Int, error) {
	if b != nil {
		n := new(big.Int).SetBytes(b)
		if n.Sign() == 0 {
			return nil, invalidRequest("serial number must be positive")
		}
		return n, nil
	}
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	n, err := rand.Int(e.rand, max)
	if err != nil {
		return nil, fmt.Errorf("generate serial: %w", err)
	}
	return n.Add(n, big.NewInt(1)), nil
}
