package cert

import (
	"crypto"
	"crypto/rsa"
	"fmt"

	_ "crypto/sha256"
	_ "crypto/sha512"
)

// pkcs1v15Overhead is the minimum padding of a PKCS#1 v1.5 encryption block.
const pkcs1v15Overhead = 11

// MaxPlaintextSize returns the largest message Encrypt accepts for pub.
func MaxPlaintextSize(pub *rsa.PublicKey) int {
	return pub.Size() - pkcs1v15Overhead
}

// Encrypt encrypts plaintext to the certificate's public key with PKCS#1 v1.5
// padding.
func (e *Engine) Encrypt(plaintext []byte, ic *IssuedCertificate) ([]byte, error) {
	if ic == nil || ic.Certificate == nil {
		return nil, invalidRequest("no certificate")
	}
	pub, err := ic.PublicKey()
	if err != nil {
		return nil, err
	}
	if max := MaxPlaintextSize(pub); len(plaintext) > max {
		return nil, fmt.Errorf("%w: %d bytes, limit %d for a %d-bit key",
			ErrPlaintextTooLarge, len(plaintext), max, pub.N.BitLen())
	}
	out, err := rsa.EncryptPKCS1v15(e.rand, pub, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return out, nil
}

// Decrypt reverses Encrypt using the certificate's private key.
func (e *Engine) Decrypt(ciphertext []byte, ic *IssuedCertificate) ([]byte, error) {
	key, err := privateKey(ic)
	if err != nil {
		return nil, err
	}
	out, err := rsa.DecryptPKCS1v15(e.rand, key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return out, nil
}

// Sign returns a PKCS#1 v1.5 signature over the digest of message. A zero
// hash means SHA-256.
func (e *Engine) Sign(message []byte, ic *IssuedCertificate, hash crypto.Hash) ([]byte, error) {
	key, err := privateKey(ic)
	if err != nil {
		return nil, err
	}
	hash, sum, err := digestOf(message, hash)
	if err != nil {
		return nil, err
	}
	sig, err := rsa.SignPKCS1v15(e.rand, key, hash, sum)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks a signature produced by Sign against the certificate's
// public key. A mismatch returns ErrSignatureInvalid.
func (e *Engine) Verify(message, sig []byte, ic *IssuedCertificate, hash crypto.Hash) error {
	if ic == nil || ic.Certificate == nil {
		return invalidRequest("no certificate")
	}
	pub, err := ic.PublicKey()
	if err != nil {
		return err
	}
	hash, sum, err := digestOf(message, hash)
	if err != nil {
		return err
	}
	if err := rsa.VerifyPKCS1v15(pub, hash, sum, sig); err != nil {
		return ErrSignatureInvalid
	}
	return nil
}

func privateKey(ic *IssuedCertificate) (*rsa.PrivateKey, error) {
	if ic == nil || ic.Certificate == nil {
		return nil, invalidRequest("no certificate")
	}
	if ic.PrivateKey == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrivateKey, ic.Certificate.Subject)
	}
	return ic.PrivateKey, nil
}

func digestOf(message []byte, hash crypto.Hash) (crypto.Hash, []byte, error) {
	if hash == 0 {
		hash = crypto.SHA256
	}
	if !hash.Available() {
		return 0, nil, invalidRequest("hash %v not available", hash)
	}
	h := hash.New()
	h.Write(message)
	return hash, h.Sum(nil), nil
}
