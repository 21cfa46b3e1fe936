package cert

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nickromney/certforge/test/testutil"
)

func TestExportPFX_RoundTrip(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "PFX Root")

	data, err := e.ExportPFX(root, "s3cret")
	if err != nil {
		t.Fatalf("ExportPFX: %v", err)
	}
	loaded, err := LoadPFX(data, "s3cret")
	if err != nil {
		t.Fatalf("LoadPFX: %v", err)
	}
	if !bytes.Equal(loaded.Raw(), root.Raw()) {
		t.Fatalf("certificate changed across round trip")
	}
	if !loaded.HasPrivateKey() || !loaded.PrivateKey.Equal(root.PrivateKey) {
		t.Fatalf("private key changed across round trip")
	}
	if loaded.FriendlyName != "PFX Root" {
		t.Fatalf("friendly name = %q, want common name", loaded.FriendlyName)
	}
}

func TestLoadPFX_WrongPassword(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Locked")

	data, err := e.ExportPFX(root, "right")
	if err != nil {
		t.Fatalf("ExportPFX: %v", err)
	}
	_, err = LoadPFX(data, "wrong")
	if !IsPFXIncorrectPassword(err) {
		t.Fatalf("expected incorrect password error, got %v", err)
	}
}

func TestLoadPFX_PublicOnly(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "Trust Only")

	data, err := e.ExportPFX(root.PublicOnly(), "pw")
	if err != nil {
		t.Fatalf("ExportPFX: %v", err)
	}
	loaded, err := LoadPFX(data, "pw")
	if err != nil {
		t.Fatalf("LoadPFX: %v", err)
	}
	if loaded.HasPrivateKey() {
		t.Fatalf("expected public-only handle")
	}
	if !bytes.Equal(loaded.Raw(), root.Raw()) {
		t.Fatalf("certificate changed across round trip")
	}
}

func TestLoadPFXFile_NotPKCS12(t *testing.T) {
	_, err := LoadPFXFile(testutil.FixturePath(t, "bad.pfx"), "")
	if !errors.Is(err, ErrPFXNotPKCS12) {
		t.Fatalf("expected ErrPFXNotPKCS12, got %v", err)
	}
}

func TestLoadPFXFile_Missing(t *testing.T) {
	_, err := LoadPFXFile(testutil.FixturePath(t, "does-not-exist.pfx"), "")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLoadFile_PEMAndDER(t *testing.T) {
	pair := testutil.MakeCertPair(t)
	der := testutil.MakeDERCert(t, pair.CertPath)

	for _, path := range []string{pair.CertPath, der} {
		ic, err := LoadFile(path, "")
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", path, err)
		}
		if ic.HasPrivateKey() {
			t.Fatalf("expected public-only handle for %s", path)
		}
		if ic.FriendlyName != "test.local" {
			t.Fatalf("friendly name = %q", ic.FriendlyName)
		}
	}
}

func TestLoadFile_PEMCannotDecrypt(t *testing.T) {
	e := NewDefaultEngine()
	pair := testutil.MakeCertPair(t)
	ic, err := LoadFile(pair.CertPath, "")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ct, err := e.Encrypt([]byte("hello"), ic)
	if err != nil {
		t.Fatalf("Encrypt with public key: %v", err)
	}
	if _, err := e.Decrypt(ct, ic); !errors.Is(err, ErrMissingPrivateKey) {
		t.Fatalf("expected ErrMissingPrivateKey, got %v", err)
	}
}

func TestLoadFile_PFXWithoutExtension(t *testing.T) {
	e := NewDefaultEngine()
	root := mustIssueRoot(t, e, "No Extension")
	data, err := e.ExportPFX(root, "pw")
	if err != nil {
		t.Fatalf("ExportPFX: %v", err)
	}
	path := testutil.WriteFile(t, "bundle.bin", data)

	ic, err := LoadFile(path, "pw")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !ic.HasPrivateKey() {
		t.Fatalf("expected private key from PFX")
	}
}

func TestLoadFile_BadPEM(t *testing.T) {
	if _, err := LoadFile(testutil.FixturePath(t, "bad-cert-garbage.pem"), ""); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadFile(testutil.FixturePath(t, "bad-no-header.pem"), ""); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestWithPrivateKey(t *testing.T) {
	e := NewDefaultEngine()
	a := mustIssueRoot(t, e, "A")
	b := mustIssueRoot(t, e, "B")

	if _, err := a.PublicOnly().WithPrivateKey(nil); !errors.Is(err, ErrMissingPrivateKey) {
		t.Fatalf("expected ErrMissingPrivateKey, got %v", err)
	}
	if _, err := a.PublicOnly().WithPrivateKey(b.PrivateKey); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for mismatched key, got %v", err)
	}
	paired, err := a.PublicOnly().WithPrivateKey(a.PrivateKey)
	if err != nil {
		t.Fatalf("WithPrivateKey: %v", err)
	}
	if !paired.HasPrivateKey() || paired.FriendlyName != a.FriendlyName {
		t.Fatalf("unexpected paired handle %+v", paired)
	}
}
