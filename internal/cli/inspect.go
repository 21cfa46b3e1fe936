package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/spf13/cobra"
)

func newVerifyCmd(engine *cert.Engine) *cobra.Command {
	var pw, caPw *passwordFlags
	cmd := &cobra.Command{
		Use:   "verify CERT CA",
		Short: "Verify that CERT chains to the root CA",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			caPassword, err := caPw.load(cmd)
			if err != nil {
				return err
			}
			leaf, err := loadCert(args[0], password)
			if err != nil {
				return err
			}
			root, err := loadCert(args[1], caPassword)
			if err != nil {
				return err
			}

			res, err := engine.VerifyChain(leaf, root)
			if err != nil {
				return err
			}
			if !res.Valid {
				errMsg("Verification failed")
				kv("Reason", res.Output)
				if res.Details != "" {
					warn(res.Details)
				}
				return checkFailed(res.Output)
			}
			success(res.Output)
			return nil
		},
	}
	pw = addPasswordFlags(cmd, "password", "Password for CERT when it is a PFX")
	caPw = addPasswordFlags(cmd, "ca-password", "Password for CA when it is a PFX")
	return cmd
}

func newShowCmd() *cobra.Command {
	var pw *passwordFlags
	var asPEM bool
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Show certificate details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(args[0], password)
			if err != nil {
				return err
			}
			if asPEM {
				emit(strings.TrimRight(string(cert.EncodePEM(ic.Certificate)), "\n"))
				return nil
			}
			printSummary(cert.Summarize(ic))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asPEM, "pem", false, "Print the certificate as PEM instead")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}

func printSummary(s cert.CertSummary) {
	kv("Subject", s.Subject)
	kv("Issuer", s.Issuer)
	if s.FriendlyName != "" {
		kv("Name", s.FriendlyName)
	}
	kv("Not Before", s.NotBefore.Format(time.RFC3339))
	kv("Not After", s.NotAfter.Format(time.RFC3339))
	kv("Serial", s.Serial)
	if len(s.SANs) > 0 {
		kv("SANs", strings.Join(s.SANs, ", "))
	}
	kv("Key", s.PublicKeyInfo)
	kv("Signature", s.SignatureAlgorithm)
	if len(s.KeyUsage) > 0 {
		kv("Key Usage", strings.Join(s.KeyUsage, ", "))
	}
	if len(s.ExtKeyUsage) > 0 {
		kv("Ext Key Usage", strings.Join(s.ExtKeyUsage, ", "))
	}
	if s.IsCA {
		pathLen := "unlimited"
		if s.MaxPathLen != cert.NoPathLenConstraint {
			pathLen = fmt.Sprint(s.MaxPathLen)
		}
		kv("CA", "yes (path length "+pathLen+")")
	} else {
		kv("CA", "no")
	}
	kv("Self-signed", yesNo(s.IsSelfSigned))
	kv("Private key", yesNo(s.HasPrivateKey))
	kv("SHA-256", s.Fingerprint)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newPubkeyCmd() *cobra.Command {
	var pw *passwordFlags
	var modulus bool
	cmd := &cobra.Command{
		Use:   "pubkey FILE",
		Short: "Print the public key as an OpenSSH authorized_keys line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := pw.load(cmd)
			if err != nil {
				return err
			}
			ic, err := loadCert(args[0], password)
			if err != nil {
				return err
			}

			if modulus {
				m, err := cert.RSAModulus(ic)
				if err != nil {
					return err
				}
				sha, md := cert.ModulusDigestsHex(m)
				emit("Modulus=" + m)
				kv("sha256", sha)
				kv("md5", md)
				return nil
			}

			line, err := cert.AuthorizedKey(ic)
			if err != nil {
				return err
			}
			emit(line)
			if fp, err := cert.SSHFingerprint(ic); err == nil {
				kv("Fingerprint", fp)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&modulus, "modulus", false, "Print the RSA modulus and its digests instead")
	pw = addPasswordFlags(cmd, "password", "PFX password")
	return cmd
}
