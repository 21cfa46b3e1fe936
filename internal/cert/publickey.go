package cert

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKey returns the certificate's public key as an OpenSSH
// authorized_keys line, commented with the friendly name.
func AuthorizedKey(ic *IssuedCertificate) (string, error) {
	pub, err := sshPublicKey(ic)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	if name := strings.TrimSpace(ic.FriendlyName); name != "" {
		line += " " + name
	}
	return line, nil
}

// SSHFingerprint returns the OpenSSH SHA256 fingerprint of the public key.
func SSHFingerprint(ic *IssuedCertificate) (string, error) {
	pub, err := sshPublicKey(ic)
	if err != nil {
		return "", err
	}
	return ssh.FingerprintSHA256(pub), nil
}

func sshPublicKey(ic *IssuedCertificate) (ssh.PublicKey, error) {
	if ic == nil || ic.Certificate == nil {
		return nil, invalidRequest("no certificate")
	}
	pub, err := ssh.NewPublicKey(ic.Certificate.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("convert public key: %w", err)
	}
	return pub, nil
}
