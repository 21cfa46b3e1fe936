package cert

import (
	"crypto/x509"
	"errors"
	"strings"
)

// VerifyChain checks that leaf chains to root, with root as the only trust
// anchor. Any extended key usage is accepted. A failed verification is
// reported in the result, not as an error.
func (e *Engine) VerifyChain(leaf, root *IssuedCertificate, intermediates ...*IssuedCertificate) (*VerifyResult, error) {
	if leaf == nil || leaf.Certificate == nil || root == nil || root.Certificate == nil {
		return nil, invalidRequest("leaf and root certificates required")
	}

	roots := x509.NewCertPool()
	roots.AddCert(root.Certificate)
	inter := x509.NewCertPool()
	for _, ic := range intermediates {
		if ic != nil && ic.Certificate != nil {
			inter.AddCert(ic.Certificate)
		}
	}

	chains, err := leaf.Certificate.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inter,
		CurrentTime:   e.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err == nil {
		var path []string
		for _, c := range chains[0] {
			path = append(path, c.Subject.CommonName)
		}
		return &VerifyResult{Valid: true, Output: leaf.Certificate.Subject.CommonName + ": OK (" + strings.Join(path, " -> ") + ")"}, nil
	}

	result := &VerifyResult{Output: err.Error()}

	// Build diagnostic details
	var details []string
	var invalid x509.CertificateInvalidError
	var unknown x509.UnknownAuthorityError
	switch {
	case errors.As(err, &invalid):
		switch invalid.Reason {
		case x509.Expired:
			details = append(details, "Certificate or CA has expired or is not yet valid")
		case x509.NotAuthorizedToSign:
			details = append(details, "Issuer is not a CA")
		case x509.TooManyIntermediates:
			details = append(details, "Path length constraint exceeded")
		case x509.IncompatibleUsage:
			details = append(details, "Key usage does not permit this chain")
		}
	case errors.As(err, &unknown):
		details = append(details, "Certificate issuer not found in CA bundle")
	}
	if leaf.Certificate.Subject.String() == leaf.Certificate.Issuer.String() &&
		!leaf.Certificate.Equal(root.Certificate) {
		details = append(details, "Certificate is self-signed")
	}
	result.Details = strings.Join(details, "; ")

	return result, nil
}
