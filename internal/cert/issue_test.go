package cert

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nickromney/certforge/test/testutil"
)

func TestIssueRootCA_Extensions(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Test Root")
	c := root.Certificate

	if !root.HasPrivateKey() {
		t.Fatalf("expected root to carry its private key")
	}
	if c.Subject.CommonName != "Test Root" || c.Issuer.CommonName != "Test Root" {
		t.Fatalf("unexpected subject/issuer: %s / %s", c.Subject, c.Issuer)
	}
	if err := c.CheckSignatureFrom(c); err != nil {
		t.Fatalf("expected self-signature to verify: %v", err)
	}
	if !c.IsCA || c.MaxPathLen != 0 || !c.MaxPathLenZero {
		t.Fatalf("expected CA with path length 0, got IsCA=%v MaxPathLen=%d zero=%v", c.IsCA, c.MaxPathLen, c.MaxPathLenZero)
	}
	bc, ok := findExtension(c, oidExtensionBasicConstraints)
	if !ok || !bc.Critical {
		t.Fatalf("expected critical basic constraints, got present=%v", ok)
	}
	ku, ok := findExtension(c, oidExtensionKeyUsage)
	if !ok || !ku.Critical {
		t.Fatalf("expected critical key usage, got present=%v", ok)
	}
	if c.KeyUsage != RootKeyUsage {
		t.Fatalf("expected key usage %v, got %v", RootKeyUsage, c.KeyUsage)
	}
	if len(c.DNSNames) != 1 || c.DNSNames[0] != "localhost" {
		t.Fatalf("unexpected DNS names: %v", c.DNSNames)
	}
	if len(c.IPAddresses) != 1 || !c.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Fatalf("unexpected IPs: %v", c.IPAddresses)
	}
	if len(c.SubjectKeyId) == 0 {
		t.Fatalf("expected subject key identifier on CA")
	}
	if c.SignatureAlgorithm != x509.SHA512WithRSA {
		t.Fatalf("expected SHA512WithRSA by default, got %v", c.SignatureAlgorithm)
	}
}

func TestIssueRootCA_RequiresSelfSigned(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Parent")

	req := rootRequest("Child Root")
	req.Issuer = SignedBy(root)
	_, err := e.IssueRootCA(context.Background(), req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestIssueRootCA_Validity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return now }))

	req := rootRequest("Clocked Root")
	req.ValidTo = now.AddDate(40, 0, 0)
	root, err := e.IssueRootCA(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueRootCA: %v", err)
	}
	if want := now.Add(-DefaultClockSkew); !root.Certificate.NotBefore.Equal(want) {
		t.Fatalf("NotBefore = %v, want %v", root.Certificate.NotBefore, want)
	}
	if !root.Certificate.NotAfter.Equal(req.ValidTo) {
		t.Fatalf("NotAfter = %v, want %v", root.Certificate.NotAfter, req.ValidTo)
	}
}

func TestIssueCertificate_SignedByRoot(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Signing Root")
	leaf := mustIssueLeaf(t, e, "server.local", root)
	c := leaf.Certificate

	if !leaf.HasPrivateKey() {
		t.Fatalf("expected leaf to be paired with its private key")
	}
	if !leaf.PrivateKey.PublicKey.Equal(c.PublicKey) {
		t.Fatalf("leaf key does not match its certificate")
	}
	if leaf.PrivateKey.Equal(root.PrivateKey) {
		t.Fatalf("leaf must have a fresh key")
	}
	if c.Issuer.String() != root.Certificate.Subject.String() {
		t.Fatalf("issuer = %s, want %s", c.Issuer, root.Certificate.Subject)
	}
	if !bytes.Equal(c.AuthorityKeyId, root.Certificate.SubjectKeyId) {
		t.Fatalf("authority key id does not match root subject key id")
	}
	if err := c.CheckSignatureFrom(root.Certificate); err != nil {
		t.Fatalf("expected leaf signature to verify against root: %v", err)
	}
	if c.IsCA {
		t.Fatalf("leaf without constraints must not be a CA")
	}
	if _, ok := findExtension(c, oidExtensionBasicConstraints); ok {
		t.Fatalf("expected no basic constraints extension on leaf")
	}
	if c.KeyUsage != x509.KeyUsageKeyEncipherment|x509.KeyUsageDataEncipherment {
		t.Fatalf("unexpected key usage %v", c.KeyUsage)
	}
	if len(c.ExtKeyUsage) != 1 || c.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth {
		t.Fatalf("unexpected ext key usage %v", c.ExtKeyUsage)
	}
	if leaf.FriendlyName != "server.local" {
		t.Fatalf("friendly name defaults to subject, got %q", leaf.FriendlyName)
	}
}

func TestIssueCertificate_ExtensionCriticality(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Criticality Root")

	tests := []struct {
		name        string
		kuCritical  bool
		ekuCritical bool
	}{
		{"both non-critical", false, false},
		{"key usage critical", true, false},
		{"eku critical", false, true},
		{"both critical", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := leafRequest("crit.local", root)
			req.KeyUsage.Critical = tt.kuCritical
			req.ExtKeyUsage.Critical = tt.ekuCritical

			leaf, err := e.IssueCertificate(context.Background(), req)
			if err != nil {
				t.Fatalf("IssueCertificate: %v", err)
			}
			ku, ok := findExtension(leaf.Certificate, oidExtensionKeyUsage)
			if !ok || ku.Critical != tt.kuCritical {
				t.Fatalf("key usage critical = %v (present=%v), want %v", ku.Critical, ok, tt.kuCritical)
			}
			eku, ok := findExtension(leaf.Certificate, oidExtensionExtendedKeyUsage)
			if !ok || eku.Critical != tt.ekuCritical {
				t.Fatalf("eku critical = %v (present=%v), want %v", eku.Critical, ok, tt.ekuCritical)
			}
		})
	}
}

func TestIssueCertificate_IntermediateConstraints(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Constraint Root")

	req := leafRequest("Intermediate", root)
	req.Constraints = &BasicConstraints{MaxPathLen: NoPathLenConstraint, Critical: false}
	req.KeyUsage = &KeyUsagePolicy{Usage: x509.KeyUsageCertSign, Critical: true}
	req.ExtKeyUsage = nil

	ic, err := e.IssueCertificate(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	c := ic.Certificate
	if !c.IsCA || c.MaxPathLen != -1 || c.MaxPathLenZero {
		t.Fatalf("expected unbounded CA, got IsCA=%v MaxPathLen=%d", c.IsCA, c.MaxPathLen)
	}
	bc, _ := findExtension(c, oidExtensionBasicConstraints)
	if bc.Critical {
		t.Fatalf("expected non-critical basic constraints")
	}
	if _, ok := findExtension(c, oidExtensionExtendedKeyUsage); ok {
		t.Fatalf("expected no EKU extension")
	}
}

func TestIssueCertificate_EmptySAN(t *testing.T) {
	e := NewDefaultEngine()

	for _, tt := range []struct {
		name   string
		policy SANPolicy
		want   bool
	}{
		{"omit", OmitEmptySAN, false},
		{"emit", EmitEmptySAN, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := rootRequest("No Names")
			req.DNSNames = nil
			req.IPAddresses = nil
			req.EmptySAN = tt.policy

			ic, err := e.IssueCertificate(context.Background(), req)
			if err != nil {
				t.Fatalf("IssueCertificate: %v", err)
			}
			_, ok := findExtension(ic.Certificate, oidExtensionSubjectAltName)
			if ok != tt.want {
				t.Fatalf("SAN extension present = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestIssueCertificate_CustomExtKeyUsageOID(t *testing.T) {
	e := NewDefaultEngine()
	custom := asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 99999, 1}

	req := rootRequest("Custom EKU")
	req.ExtKeyUsage = &ExtKeyUsagePolicy{OIDs: []asn1.ObjectIdentifier{OIDClientAuth, custom}}
	ic, err := e.IssueCertificate(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	c := ic.Certificate
	if len(c.ExtKeyUsage) != 1 || c.ExtKeyUsage[0] != x509.ExtKeyUsageClientAuth {
		t.Fatalf("unexpected ext key usage %v", c.ExtKeyUsage)
	}
	if len(c.UnknownExtKeyUsage) != 1 || !c.UnknownExtKeyUsage[0].Equal(custom) {
		t.Fatalf("unexpected unknown ext key usage %v", c.UnknownExtKeyUsage)
	}
}

func TestIssueCertificate_ForeignIssuer(t *testing.T) {
	e := NewDefaultEngine()
	caCert, caKey := testutil.MakeRSAIssuer(t, "Foreign CA")
	parent := &IssuedCertificate{FriendlyName: "foreign", Certificate: caCert, PrivateKey: caKey}

	leaf := mustIssueLeaf(t, e, "foreign-leaf.local", parent)
	if err := leaf.Certificate.CheckSignatureFrom(caCert); err != nil {
		t.Fatalf("expected signature from foreign CA: %v", err)
	}
	if leaf.Certificate.Issuer.CommonName != "Foreign CA" {
		t.Fatalf("unexpected issuer %s", leaf.Certificate.Issuer)
	}
}

func TestIssueCertificate_InvalidIssuer(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Keyless Root")
	other := mustIssueRoot(t, e, "Other Root")

	tests := []struct {
		name   string
		parent *IssuedCertificate
	}{
		{"nil parent", nil},
		{"public only", root.PublicOnly()},
		{"mismatched key", &IssuedCertificate{Certificate: root.Certificate, PrivateKey: other.PrivateKey}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.IssueCertificate(context.Background(), leafRequest("x.local", tt.parent))
			if !errors.Is(err, ErrInvalidIssuer) {
				t.Fatalf("expected ErrInvalidIssuer, got %v", err)
			}
		})
	}
}

func TestIssueCertificate_InvalidRequests(t *testing.T) {
	e := NewDefaultEngine()

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"empty subject", func(r *Request) { r.SubjectName = " " }, ErrInvalidRequest},
		{"no validity end", func(r *Request) { r.ValidTo = time.Time{} }, ErrInvalidRequest},
		{"end before start", func(r *Request) { r.ValidFrom = time.Now(); r.ValidTo = time.Now().Add(-time.Hour) }, ErrInvalidRequest},
		{"key too small", func(r *Request) { r.KeyBits = 512 }, ErrKeyGeneration},
		{"key too large", func(r *Request) { r.KeyBits = MaxKeyBits + 8 }, ErrKeyGeneration},
		{"key not byte aligned", func(r *Request) { r.KeyBits = 2047 }, ErrKeyGeneration},
		{"zero serial", func(r *Request) { r.SerialNumber = []byte{0, 0} }, ErrInvalidRequest},
		{"unsupported hash", func(r *Request) { r.Hash = crypto.SHA1 }, ErrInvalidRequest},
		{"empty key usage", func(r *Request) { r.KeyUsage = &KeyUsagePolicy{} }, ErrInvalidRequest},
		{"non-ascii dns", func(r *Request) { r.DNSNames = []string{"bücher.example"} }, ErrInvalidRequest},
		{"negative path length", func(r *Request) { r.Constraints = &BasicConstraints{MaxPathLen: -2} }, ErrInvalidRequest},
		{"padded subject", func(r *Request) { r.SubjectName = " Padded " }, ErrInvalidRequest},
		{"subject not a file name", func(r *Request) { r.SubjectName = "a/b"; r.Export = &Export{Dir: "unused"} }, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rootRequest("Invalid")
			tt.mutate(&req)
			_, err := e.IssueCertificate(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIssueCertificate_SerialAndHash(t *testing.T) {
	e := NewDefaultEngine()

	req := rootRequest("Serial")
	req.SerialNumber = []byte{0x01, 0x02, 0x03}
	req.Hash = crypto.SHA256
	ic, err := e.IssueCertificate(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	if got := ic.Certificate.SerialNumber.Int64(); got != 0x010203 {
		t.Fatalf("serial = %x, want 010203", got)
	}
	if ic.Certificate.SignatureAlgorithm != x509.SHA256WithRSA {
		t.Fatalf("expected SHA256WithRSA, got %v", ic.Certificate.SignatureAlgorithm)
	}

	other, err := e.IssueCertificate(context.Background(), rootRequest("Random Serial"))
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	if other.Certificate.SerialNumber.Sign() <= 0 {
		t.Fatalf("expected positive random serial, got %v", other.Certificate.SerialNumber)
	}
}

func TestIssueCertificate_ContextCanceled(t *testing.T) {
	e := NewDefaultEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.IssueCertificate(ctx, rootRequest("Canceled"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIssueRootCA_ExportsPFX(t *testing.T) {
	e := NewDefaultEngine()
	dir := filepath.Join(t.TempDir(), "keys")

	req := rootRequest("Exported Root")
	req.Export = &Export{Dir: dir, Password: "pw"}
	root, err := e.IssueRootCA(context.Background(), req)
	if err != nil {
		t.Fatalf("IssueRootCA: %v", err)
	}

	path := filepath.Join(dir, "Exported Root.pfx")
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected pfx at %s: %v", path, err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", st.Mode().Perm())
	}

	loaded, err := LoadPFXFile(path, "pw")
	if err != nil {
		t.Fatalf("LoadPFXFile: %v", err)
	}
	if !bytes.Equal(loaded.Raw(), root.Raw()) {
		t.Fatalf("reloaded certificate differs from issued one")
	}
}

func TestIssueCertificate_ExportIOError(t *testing.T) {
	e := NewDefaultEngine()
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := rootRequest("Blocked")
	req.Export = &Export{Dir: filepath.Join(blocker, "sub"), Password: "pw"}
	_, err := e.IssueCertificate(context.Background(), req)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	var ioErr *IOError
	if !errors.As(err, &ioErr) || ioErr.Path != req.Export.Dir {
		t.Fatalf("expected *IOError for %s, got %#v", req.Export.Dir, err)
	}
}

func TestIssue_FullSizeScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("4096-bit key generation is slow")
	}
	e := NewDefaultEngine()
	dir := t.TempDir()

	rootReq := rootRequest("Scenario Root")
	rootReq.KeyBits = 4096
	rootReq.ValidTo = time.Now().AddDate(40, 0, 0)
	rootReq.Export = &Export{Dir: dir, Password: "pfx-password"}
	root, err := e.IssueRootCA(context.Background(), rootReq)
	if err != nil {
		t.Fatalf("IssueRootCA: %v", err)
	}

	leafReq := leafRequest("scenario.local", root)
	leafReq.KeyBits = 2048
	leafReq.Export = &Export{Dir: dir, Password: "pfx-password"}
	if _, err := e.IssueCertificate(context.Background(), leafReq); err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}

	reRoot, err := LoadPFXFile(filepath.Join(dir, "Scenario Root.pfx"), "pfx-password")
	if err != nil {
		t.Fatalf("load root: %v", err)
	}
	reLeaf, err := LoadPFXFile(filepath.Join(dir, "scenario.local.pfx"), "pfx-password")
	if err != nil {
		t.Fatalf("load leaf: %v", err)
	}
	if reRoot.Certificate.PublicKey.(interface{ Size() int }).Size() != 512 {
		t.Fatalf("expected 4096-bit root key")
	}

	msg := []byte("this is a secret test string")
	ct, err := e.Encrypt(msg, reLeaf)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := e.Decrypt(ct, reLeaf)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, msg) {
		t.Fatalf("round trip mismatch: %q", pt)
	}

	res, err := e.VerifyChain(reLeaf, reRoot)
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected chain to verify: %s", res.Output)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("rand exhausted") }

func TestIssueCertificate_BadFileNameRejectedBeforeKeyGeneration(t *testing.T) {
	// Any use of randomness fails, so only validation can produce the error.
	e := NewEngine(WithRand(failingReader{}))
	dir := filepath.Join(t.TempDir(), "keys")

	req := rootRequest("a/b")
	req.Export = &Export{Dir: dir, Password: "pw"}
	_, err := e.IssueCertificate(context.Background(), req)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory, stat err=%v", err)
	}
}

func TestIssueRootCA_PaddedSubjectRejected(t *testing.T) {
	e := NewEngine(WithRand(failingReader{}))
	req := rootRequest(" Padded ")
	req.Export = &Export{Dir: t.TempDir(), Password: "pw"}
	if _, err := e.IssueRootCA(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
