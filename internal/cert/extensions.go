package cert

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/bits"
	"net"
	"strconv"
	"strings"
)

var (
	oidExtensionKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	oidExtensionSubjectAltName   = asn1.ObjectIdentifier{2, 5, 29, 17}
	oidExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	oidExtensionExtendedKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}
)

// Extended key usage purposes.
var (
	OIDAnyExtendedKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37, 0}
	OIDServerAuth          = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}
	OIDClientAuth          = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}
	OIDCodeSigning         = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}
	OIDEmailProtection     = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}
	OIDTimeStamping        = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}
	OIDOCSPSigning         = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}
)

var extKeyUsageNames = map[string]asn1.ObjectIdentifier{
	"any":             OIDAnyExtendedKeyUsage,
	"serverauth":      OIDServerAuth,
	"clientauth":      OIDClientAuth,
	"codesigning":     OIDCodeSigning,
	"emailprotection": OIDEmailProtection,
	"timestamping":    OIDTimeStamping,
	"ocspsigning":     OIDOCSPSigning,
}

var keyUsageNames = map[string]x509.KeyUsage{
	"digitalsignature":  x509.KeyUsageDigitalSignature,
	"contentcommitment": x509.KeyUsageContentCommitment,
	"nonrepudiation":    x509.KeyUsageContentCommitment,
	"keyencipherment":   x509.KeyUsageKeyEncipherment,
	"dataencipherment":  x509.KeyUsageDataEncipherment,
	"keyagreement":      x509.KeyUsageKeyAgreement,
	"certsign":          x509.KeyUsageCertSign,
	"keycertsign":       x509.KeyUsageCertSign,
	"crlsign":           x509.KeyUsageCRLSign,
	"encipheronly":      x509.KeyUsageEncipherOnly,
	"decipheronly":      x509.KeyUsageDecipherOnly,
}

// ParseExtKeyUsage accepts a purpose name ("serverAuth") or a dotted OID.
func ParseExtKeyUsage(s string) (asn1.ObjectIdentifier, error) {
	s = strings.TrimSpace(s)
	if oid, ok := extKeyUsageNames[normalizeName(s)]; ok {
		return oid, nil
	}
	oid, err := oidFromString(s)
	if err != nil {
		return nil, invalidRequest("unknown extended key usage %q", s)
	}
	return oid, nil
}

// ParseKeyUsage accepts usage names such as "keyEncipherment" or "key-encipherment".
func ParseKeyUsage(names []string) (x509.KeyUsage, error) {
	var ku x509.KeyUsage
	for _, n := range names {
		bit, ok := keyUsageNames[normalizeName(n)]
		if !ok {
			return 0, invalidRequest("unknown key usage %q", n)
		}
		ku |= bit
	}
	return ku, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

func oidFromString(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("not a dotted OID: %q", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("not a dotted OID: %q", s)
		}
		oid[i] = n
	}
	return oid, nil
}

// buildExtensions composes the extensions a request asks for. They go into
// the template's ExtraExtensions so their criticality is exactly what the
// caller set.
func buildExtensions(req Request) ([]pkix.Extension, error) {
	var exts []pkix.Extension

	if req.Constraints != nil {
		ext, err := marshalBasicConstraints(*req.Constraints)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if req.KeyUsage != nil {
		ext, err := marshalKeyUsage(*req.KeyUsage)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if req.ExtKeyUsage != nil && len(req.ExtKeyUsage.OIDs) > 0 {
		ext, err := marshalExtKeyUsage(*req.ExtKeyUsage)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	if len(req.DNSNames) > 0 || len(req.IPAddresses) > 0 || req.EmptySAN == EmitEmptySAN {
		ext, err := marshalSAN(req.DNSNames, req.IPAddresses)
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}

	return exts, nil
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

func marshalBasicConstraints(bc BasicConstraints) (pkix.Extension, error) {
	if bc.MaxPathLen < NoPathLenConstraint {
		return pkix.Extension{}, invalidRequest("path length %d out of range", bc.MaxPathLen)
	}
	val, err := asn1.Marshal(basicConstraints{IsCA: true, MaxPathLen: bc.MaxPathLen})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal basic constraints: %w", err)
	}
	return pkix.Extension{Id: oidExtensionBasicConstraints, Critical: bc.Critical, Value: val}, nil
}

func marshalKeyUsage(p KeyUsagePolicy) (pkix.Extension, error) {
	if p.Usage == 0 {
		return pkix.Extension{}, invalidRequest("empty key usage")
	}
	var a [2]byte
	a[0] = bits.Reverse8(byte(p.Usage))
	a[1] = bits.Reverse8(byte(p.Usage >> 8))
	l := 1
	if a[1] != 0 {
		l = 2
	}
	bitString := a[:l]
	val, err := asn1.Marshal(asn1.BitString{Bytes: bitString, BitLength: asn1BitLength(bitString)})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal key usage: %w", err)
	}
	return pkix.Extension{Id: oidExtensionKeyUsage, Critical: p.Critical, Value: val}, nil
}

// asn1BitLength trims trailing zero bits so the DER bit string is minimal.
func asn1BitLength(bitString []byte) int {
	bitLen := len(bitString) * 8
	for i := range bitString {
		b := bitString[len(bitString)-i-1]
		for bit := uint(0); bit < 8; bit++ {
			if (b>>bit)&1 == 1 {
				return bitLen
			}
			bitLen--
		}
	}
	return 0
}

func marshalExtKeyUsage(p ExtKeyUsagePolicy) (pkix.Extension, error) {
	val, err := asn1.Marshal(p.OIDs)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal extended key usage: %w", err)
	}
	return pkix.Extension{Id: oidExtensionExtendedKeyUsage, Critical: p.Critical, Value: val}, nil
}

const (
	nameTypeDNS = 2
	nameTypeIP  = 7
)

func marshalSAN(dnsNames []string, ips []net.IP) (pkix.Extension, error) {
	raw := make([]asn1.RawValue, 0, len(dnsNames)+len(ips))
	for _, name := range dnsNames {
		if !isIA5(name) {
			return pkix.Extension{}, invalidRequest("DNS name %q is not ASCII", name)
		}
		raw = append(raw, asn1.RawValue{Tag: nameTypeDNS, Class: asn1.ClassContextSpecific, Bytes: []byte(name)})
	}
	for _, ip := range ips {
		b := ip.To4()
		if b == nil {
			b = ip.To16()
		}
		if b == nil {
			return pkix.Extension{}, invalidRequest("invalid IP address %v", ip)
		}
		raw = append(raw, asn1.RawValue{Tag: nameTypeIP, Class: asn1.ClassContextSpecific, Bytes: b})
	}
	val, err := asn1.Marshal(raw)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("marshal subject alternative name: %w", err)
	}
	return pkix.Extension{Id: oidExtensionSubjectAltName, Value: val}, nil
}

func isIA5(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// findExtension returns the extension with the given OID, if present.
func findExtension(c *x509.Certificate, oid asn1.ObjectIdentifier) (pkix.Extension, bool) {
	for _, e := range c.Extensions {
		if e.Id.Equal(oid) {
			return e, true
		}
	}
	return pkix.Extension{}, false
}
