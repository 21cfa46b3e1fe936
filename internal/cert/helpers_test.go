package cert

import (
	"context"
	"crypto/x509"
	"encoding/asn1"
	"net"
	"testing"
	"time"
)

// testKeyBits keeps key generation fast; sizes are exercised separately.
const testKeyBits = 1024

func rootRequest(name string) Request {
	return Request{
		SubjectName: name,
		KeyBits:     testKeyBits,
		ValidTo:     time.Now().Add(10 * 365 * 24 * time.Hour),
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.ParseIP("127.0.0.1")},
		Issuer:      SelfSigned(),
	}
}

func leafRequest(name string, parent *IssuedCertificate) Request {
	return Request{
		SubjectName: name,
		KeyBits:     testKeyBits,
		ValidTo:     time.Now().Add(90 * 24 * time.Hour),
		DNSNames:    []string{name},
		KeyUsage:    &KeyUsagePolicy{Usage: x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment},
		ExtKeyUsage: &ExtKeyUsagePolicy{OIDs: []asn1.ObjectIdentifier{OIDServerAuth}},
		Issuer:      SignedBy(parent),
	}
}

func mustIssueRoot(t *testing.T, e *Engine, name string) *IssuedCertificate {
	t.Helper()
	root, err := e.IssueRootCA(context.Background(), rootRequest(name))
	if err != nil {
		t.Fatalf("IssueRootCA(%s): %v", name, err)
	}
	return root
}

func mustIssueLeaf(t *testing.T, e *Engine, name string, parent *IssuedCertificate) *IssuedCertificate {
	t.Helper()
	leaf, err := e.IssueCertificate(context.Background(), leafRequest(name, parent))
	if err != nil {
		t.Fatalf("IssueCertificate(%s): %v", name, err)
	}
	return leaf
}
