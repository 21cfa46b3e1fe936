package cert

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyGeneration indicates the requested RSA key could not be generated,
	// usually because the key size is unsupported.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrInvalidIssuer indicates a chained issuance was requested with an
	// issuer that cannot sign (missing certificate or private key).
	ErrInvalidIssuer = errors.New("issuer cannot sign: no private key")

	// ErrInvalidRequest indicates the request itself is malformed.
	ErrInvalidRequest = errors.New("invalid certificate request")

	// ErrIO indicates a directory or file could not be created or written.
	// Concrete failures are reported as *IOError.
	ErrIO = errors.New("i/o failure")

	// ErrMissingPrivateKey indicates an operation needs a private key the
	// certificate handle does not carry.
	ErrMissingPrivateKey = errors.New("certificate has no private key")

	// ErrPlaintextTooLarge indicates the input exceeds what a single PKCS#1 v1.5
	// block can hold for the key size.
	ErrPlaintextTooLarge = errors.New("plaintext too large for key")

	// ErrSignatureInvalid indicates a signature did not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrPFXIncorrectPassword indicates the PFX MAC or decryption rejected the password.
	ErrPFXIncorrectPassword = errors.New("incorrect password")

	// ErrPFXNotPKCS12 indicates the file is not a valid PKCS#12/PFX container.
	ErrPFXNotPKCS12 = errors.New("file is not a valid PKCS#12/PFX file")
)

// IOError records the operation and path of a filesystem failure.
// errors.Is(err, ErrIO) reports true for any *IOError.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func IsPFXIncorrectPassword(err error) bool {
	return errors.Is(err, ErrPFXIncorrectPassword)
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
