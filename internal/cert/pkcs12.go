package cert

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// ExportPFX encodes c as a PKCS#12 archive protected by password. The archive
// holds the single certificate and, when present, its private key.
func (e *Engine) ExportPFX(c *IssuedCertificate, password string) ([]byte, error) {
	if c == nil || c.Certificate == nil {
		return nil, invalidRequest("no certificate to export")
	}
	enc := pkcs12.Modern.WithRand(e.rand)
	if c.PrivateKey == nil {
		data, err := enc.EncodeTrustStore([]*x509.Certificate{c.Certificate}, password)
		if err != nil {
			return nil, fmt.Errorf("encode pfx: %w", err)
		}
		return data, nil
	}
	data, err := enc.Encode(c.PrivateKey, c.Certificate, nil, password)
	if err != nil {
		return nil, fmt.Errorf("encode pfx: %w", err)
	}
	return data, nil
}

// LoadPFX decodes a PKCS#12 archive. Archives without a private key load as
// public-only handles. The friendly name is the certificate's common name.
func LoadPFX(data []byte, password string) (*IssuedCertificate, error) {
	key, c, _, err := pkcs12.DecodeChain(data, password)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrNotRSA
		}
		loaded := &IssuedCertificate{FriendlyName: c.Subject.CommonName, Certificate: c}
		return loaded.WithPrivateKey(rsaKey)
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("%w: %v", ErrPFXIncorrectPassword, err)
	}

	certs, tsErr := pkcs12.DecodeTrustStore(data, password)
	if tsErr == nil && len(certs) > 0 {
		return &IssuedCertificate{FriendlyName: certs[0].Subject.CommonName, Certificate: certs[0]}, nil
	}
	if errors.Is(tsErr, pkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("%w: %v", ErrPFXIncorrectPassword, tsErr)
	}
	return nil, fmt.Errorf("%w: %v", ErrPFXNotPKCS12, err)
}

// LoadPFXFile reads and decodes a PFX file.
func LoadPFXFile(path, password string) (*IssuedCertificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	c, err := LoadPFX(data, password)
	if err != nil {
		return nil, fmt.Errorf("read pfx %s: %w", path, err)
	}
	return c, nil
}

// LoadFile loads a certificate from a PFX, PEM or DER file. Only PFX files
// can carry a private key; the password is ignored for the other types.
func LoadFile(path, password string) (*IssuedCertificate, error) {
	ft, err := DetectType(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	switch ft {
	case FileTypePFX:
		return LoadPFXFile(path, password)
	case FileTypeCert, FileTypeDER:
		c, err := ParseCertFile(path)
		if err != nil {
			return nil, fmt.Errorf("parse certificate %s: %w", path, err)
		}
		return &IssuedCertificate{FriendlyName: c.Subject.CommonName, Certificate: c}, nil
	default:
		return nil, fmt.Errorf("unsupported file type for %s: %s", path, ft)
	}
}
