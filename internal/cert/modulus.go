package cert

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrNotRSA = errors.New("not an RSA key/certificate (no modulus)")

// RSAModulus returns the certificate's RSA modulus as upper-case hex, the
// same form `openssl x509 -modulus` prints.
func RSAModulus(ic *IssuedCertificate) (string, error) {
	if ic == nil || ic.Certificate == nil {
		return "", invalidRequest("no certificate")
	}
	pub, err := ic.PublicKey()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", pub.N), nil
}

// ModulusDigestsHex digests the hex modulus text so it can be compared with
// `openssl x509 -modulus | openssl sha256` output.
func ModulusDigestsHex(modulusHex string) (sha256Hex string, md5Hex string) {
	b := []byte(strings.TrimSpace(modulusHex))
	sha := sha256.Sum256(b)
	md := md5.Sum(b)
	return hex.EncodeToString(sha[:]), hex.EncodeToString(md[:])
}
