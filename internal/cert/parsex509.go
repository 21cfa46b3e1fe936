package cert

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"strings"
)

// ParseCertFile reads a PEM or DER certificate file.
func ParseCertFile(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCertBytes(data)
}

// ParseCertBytes parses the first CERTIFICATE block of PEM input, or the
// whole input as DER when it holds no such block.
func ParseCertBytes(data []byte) (*x509.Certificate, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
	return x509.ParseCertificate(data)
}

// EncodePEM returns the certificate as a PEM block.
func EncodePEM(c *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
}

// Summarize describes an issued or loaded certificate.
func Summarize(ic *IssuedCertificate) CertSummary {
	if ic == nil || ic.Certificate == nil {
		return CertSummary{}
	}
	c := ic.Certificate
	s := CertSummary{
		FriendlyName:       ic.FriendlyName,
		Subject:            c.Subject.String(),
		Issuer:             c.Issuer.String(),
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		Serial:             formatSerial(c.SerialNumber),
		SANs:               collectSANs(c),
		SignatureAlgorithm: c.SignatureAlgorithm.String(),
		PublicKeyInfo:      describePublicKey(c),
		KeyUsage:           describeKeyUsage(c.KeyUsage),
		ExtKeyUsage:        describeExtKeyUsage(c),
		IsCA:               c.IsCA,
		MaxPathLen:         NoPathLenConstraint,
		IsSelfSigned:       c.CheckSignatureFrom(c) == nil && c.Subject.String() == c.Issuer.String(),
		HasPrivateKey:      ic.HasPrivateKey(),
		Fingerprint:        FormatCertFingerprint(c),
	}
	if c.IsCA && (c.MaxPathLen > 0 || c.MaxPathLenZero) {
		s.MaxPathLen = c.MaxPathLen
	}
	return s
}

func formatSerial(n *big.Int) string {
	if n == nil {
		return ""
	}
	if n.Sign() == 0 {
		return "00"
	}
	return colonHex(n.Bytes())
}

// colonHex renders b as upper-case hex pairs joined by colons.
func colonHex(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(':')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

func collectSANs(c *x509.Certificate) []string {
	var sans []string
	for _, dns := range c.DNSNames {
		sans = append(sans, "DNS:"+dns)
	}
	for _, ip := range c.IPAddresses {
		sans = append(sans, "IP:"+ip.String())
	}
	for _, email := range c.EmailAddresses {
		sans = append(sans, "email:"+email)
	}
	for _, uri := range c.URIs {
		sans = append(sans, "URI:"+uri.String())
	}
	return sans
}

func describePublicKey(c *x509.Certificate) string {
	switch pub := c.PublicKey.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("RSA %d", pub.N.BitLen())
	case *ecdsa.PublicKey:
		if pub.Curve == nil {
			return "ECDSA"
		}
		return "ECDSA " + pub.Curve.Params().Name
	case ed25519.PublicKey:
		return "Ed25519"
	}
	return c.PublicKeyAlgorithm.String()
}

// keyUsageLabels is in bit order.
var keyUsageLabels = []struct {
	bit  x509.KeyUsage
	name string
}{
	{x509.KeyUsageDigitalSignature, "Digital Signature"},
	{x509.KeyUsageContentCommitment, "Content Commitment"},
	{x509.KeyUsageKeyEncipherment, "Key Encipherment"},
	{x509.KeyUsageDataEncipherment, "Data Encipherment"},
	{x509.KeyUsageKeyAgreement, "Key Agreement"},
	{x509.KeyUsageCertSign, "Certificate Sign"},
	{x509.KeyUsageCRLSign, "CRL Sign"},
	{x509.KeyUsageEncipherOnly, "Encipher Only"},
	{x509.KeyUsageDecipherOnly, "Decipher Only"},
}

func describeKeyUsage(ku x509.KeyUsage) []string {
	var usages []string
	for _, l := range keyUsageLabels {
		if ku&l.bit != 0 {
			usages = append(usages, l.name)
		}
	}
	return usages
}

var extKeyUsageLabels = map[x509.ExtKeyUsage]string{
	x509.ExtKeyUsageAny:             "Any",
	x509.ExtKeyUsageServerAuth:      "Server Auth",
	x509.ExtKeyUsageClientAuth:      "Client Auth",
	x509.ExtKeyUsageCodeSigning:     "Code Signing",
	x509.ExtKeyUsageEmailProtection: "Email Protection",
	x509.ExtKeyUsageTimeStamping:    "Time Stamping",
	x509.ExtKeyUsageOCSPSigning:     "OCSP Signing",
}

// describeExtKeyUsage lists known purposes by name and custom ones by OID.
func describeExtKeyUsage(c *x509.Certificate) []string {
	var usages []string
	for _, eku := range c.ExtKeyUsage {
		name, ok := extKeyUsageLabels[eku]
		if !ok {
			name = fmt.Sprintf("Unknown (%d)", eku)
		}
		usages = append(usages, name)
	}
	for _, oid := range c.UnknownExtKeyUsage {
		usages = append(usages, oid.String())
	}
	return usages
}

// FormatSANsShort joins up to three SANs and counts the rest.
func FormatSANsShort(sans []string) string {
	const maxShow = 3
	if len(sans) <= maxShow {
		return strings.Join(sans, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(sans[:maxShow], ", "), len(sans)-maxShow)
}

// FormatCertFingerprint returns the colon-separated SHA-256 fingerprint of
// the DER certificate.
func FormatCertFingerprint(c *x509.Certificate) string {
	fp := sha256.Sum256(c.Raw)
	return colonHex(fp[:])
}
