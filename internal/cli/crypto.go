package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/spf13/cobra"
)

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	if err := requireFile(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// writeBinary writes raw bytes to out, or base64 to stdout when out is empty.
func writeBinary(out string, data []byte) error {
	if out == "" {
		emit(base64.StdEncoding.EncodeToString(data))
		return nil
	}
	if err := cert.WriteFileExclusive(out, data, 0o600); err != nil {
		return err
	}
	success("Created: " + out)
	return nil
}

// decodeBlock accepts a raw RSA block of exactly size bytes, or its base64
// text form.
func decodeBlock(data []byte, size int) ([]byte, error) {
	if len(data) == size {
		return data, nil
	}
	s := strings.TrimSpace(string(data))
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("expected %d raw bytes or base64 text", size)
	}
	return b, nil
}

func keySize(ic *cert.IssuedCertificate) (int, error) {
	pub, err := ic.PublicKey()
	if err != nil {
		return 0, err
	}
	return pub.Size(), nil
}

func newEncryptCmd(engine *cert.Engine) *cobra.Command {
	var certPath, out string
	var pw *passwordFlags
	cmd := &cobra.Command{
		Use:   "encrypt FILE",
		Short: "Encrypt FILE (or - for stdin) to a certificate's RSA key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(certPath, password)
			if err != nil {
				return err
			}
			plaintext, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			ct, err := engine.Encrypt(plaintext, ic)
			if err != nil {
				return err
			}
			return writeBinary(out, ct)
		},
	}
	cmd.Flags().StringVarP(&certPath, "cert", "c", "", "Certificate (PFX, PEM or DER)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write raw ciphertext here (default: base64 to stdout)")
	_ = cmd.MarkFlagRequired("cert")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}

func newDecryptCmd(engine *cert.Engine) *cobra.Command {
	var certPath, out string
	var pw *passwordFlags
	cmd := &cobra.Command{
		Use:   "decrypt FILE",
		Short: "Decrypt FILE (raw or base64) with a PFX's private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(certPath, password)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			size, err := keySize(ic)
			if err != nil {
				return err
			}
			ct, err := decodeBlock(data, size)
			if err != nil {
				return err
			}
			pt, err := engine.Decrypt(ct, ic)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = outStdout.Write(pt)
				return err
			}
			if err := cert.WriteFileExclusive(out, pt, 0o600); err != nil {
				return err
			}
			success("Created: " + out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&certPath, "cert", "c", "", "PFX holding the private key")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write plaintext here (default: stdout)")
	_ = cmd.MarkFlagRequired("cert")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}

func newSignCmd(engine *cert.Engine) *cobra.Command {
	var certPath, out, hash string
	var pw *passwordFlags
	cmd := &cobra.Command{
		Use:   "sign FILE",
		Short: "Sign FILE (or - for stdin) with a PFX's private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cert.ParseHash(hash)
			if err != nil {
				return usageErrorf("%v", err)
			}
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(certPath, password)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			sig, err := engine.Sign(msg, ic, h)
			if err != nil {
				return err
			}
			return writeBinary(out, sig)
		},
	}
	cmd.Flags().StringVarP(&certPath, "cert", "c", "", "PFX holding the private key")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write raw signature here (default: base64 to stdout)")
	cmd.Flags().StringVar(&hash, "hash", "sha256", "Digest: sha256, sha384 or sha512")
	_ = cmd.MarkFlagRequired("cert")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}

func newVerifySigCmd(engine *cert.Engine) *cobra.Command {
	var certPath, sigPath, hash string
	var pw *passwordFlags
	cmd := &cobra.Command{
		Use:   "verify-sig FILE",
		Short: "Verify a signature over FILE with a certificate's public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cert.ParseHash(hash)
			if err != nil {
				return usageErrorf("%v", err)
			}
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(certPath, password)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := requireFile(sigPath); err != nil {
				return err
			}
			raw, err := os.ReadFile(sigPath)
			if err != nil {
				return err
			}
			size, err := keySize(ic)
			if err != nil {
				return err
			}
			sig, err := decodeBlock(raw, size)
			if err != nil {
				return err
			}

			if err := engine.Verify(msg, sig, ic, h); err != nil {
				errMsg("Signature does NOT verify")
				return checkFailed(err.Error())
			}
			success("Signature verified")
			return nil
		},
	}
	cmd.Flags().StringVarP(&certPath, "cert", "c", "", "Certificate (PFX, PEM or DER)")
	cmd.Flags().StringVarP(&sigPath, "sig", "s", "", "Signature file (raw or base64)")
	cmd.Flags().StringVar(&hash, "hash", "sha256", "Digest: sha256, sha384 or sha512")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("sig")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}
