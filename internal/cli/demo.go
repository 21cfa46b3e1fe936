package cli

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/nickromney/certforge/internal/config"
	"github.com/spf13/cobra"
)

const (
	demoRootName     = "RootCert"
	demoRootPassword = "test"
	demoLeafName     = "SubCert"
	demoLeafPassword = "test2"
	demoMessage      = "this is a secret test string"
)

var (
	demoLeafSerial   = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}
	demoLeafKeyUsage = x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment
	demoLeafEKU      = []asn1.ObjectIdentifier{cert.OIDServerAuth}
)

func newDemoCmd(engine *cert.Engine, cfg config.Config) *cobra.Command {
	var (
		outDir    string
		bits      int
		leafYears int
	)
	var rootPw, leafPw *passwordFlags
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Issue a root CA and a server certificate, then exercise their keys",
		Long: "Issue RootCert.pfx and SubCert.pfx (signed by RootCert) into the output directory, " +
			"reload both from disk, and run an encrypt/decrypt and sign/verify round trip with the " +
			"server certificate. Existing PFX files are reused, not overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := resolveOutDir(outDir, cfg)

			rootPassword, err := demoPassword(cmd, rootPw, demoRootPassword)
			if err != nil {
				return err
			}
			leafPassword, err := demoPassword(cmd, leafPw, demoLeafPassword)
			if err != nil {
				return err
			}

			hostNames, hostIPs := hostSANs()
			dnsNames := mergeNames([]string{"localhost"}, hostNames)

			step("Root CA")
			_, err = issueAndSave(ctx, engine, []cert.Request{{
				SubjectName: demoRootName,
				KeyBits:     bits,
				ValidTo:     time.Now().AddDate(cfg.RootValidityYears, 0, 0),
				DNSNames:    dnsNames,
				IPAddresses: hostIPs,
				Issuer:      cert.SelfSigned(),
				Export:      &cert.Export{Dir: dir, Password: rootPassword},
			}}, true)
			if err != nil {
				return err
			}
			// The file on disk wins over the in-memory handle when it was kept.
			root, err := loadDemoPFX(dir, demoRootName, rootPassword)
			if err != nil {
				return err
			}

			step("Server certificate")
			_, err = issueAndSave(ctx, engine, []cert.Request{{
				SubjectName:  demoLeafName,
				KeyBits:      bits,
				ValidTo:      time.Now().AddDate(leafYears, 0, 0),
				DNSNames:     dnsNames,
				IPAddresses:  hostIPs,
				SerialNumber: demoLeafSerial,
				KeyUsage:     &cert.KeyUsagePolicy{Usage: demoLeafKeyUsage},
				ExtKeyUsage:  &cert.ExtKeyUsagePolicy{OIDs: demoLeafEKU, Critical: true},
				Issuer:       cert.SignedBy(root),
				Export:       &cert.Export{Dir: dir, Password: leafPassword},
			}}, false)
			if err != nil {
				return err
			}
			leaf, err := loadDemoPFX(dir, demoLeafName, leafPassword)
			if err != nil {
				return err
			}

			step("Chain")
			res, err := engine.VerifyChain(leaf, root)
			if err != nil {
				return err
			}
			if !res.Valid {
				errMsg("Chain does not verify: " + res.Output)
				if res.Details != "" {
					warn(res.Details)
				}
				return checkFailed(res.Output)
			}
			success(res.Output)

			step("Encrypt and decrypt")
			ct, err := engine.Encrypt([]byte(demoMessage), leaf.PublicOnly())
			if err != nil {
				return err
			}
			pt, err := engine.Decrypt(ct, leaf)
			if err != nil {
				return err
			}
			if !bytes.Equal(pt, []byte(demoMessage)) {
				return fmt.Errorf("decrypted text does not match: %q", pt)
			}
			success(fmt.Sprintf("Round trip OK (%d-byte ciphertext)", len(ct)))
			kv("Plaintext", string(pt))

			step("Sign and verify")
			sig, err := engine.Sign([]byte(demoMessage), leaf, 0)
			if err != nil {
				return err
			}
			if err := engine.Verify([]byte(demoMessage), sig, leaf.PublicOnly(), 0); err != nil {
				return err
			}
			success("Signature verified")
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&outDir, "out", "o", "", "Output directory (default from config, else ./keys)")
	fl.IntVar(&bits, "bits", 4096, "RSA key size for both certificates")
	fl.IntVar(&leafYears, "leaf-years", 1, "Server certificate validity in years")
	rootPw = addPasswordFlags(cmd, "password", "RootCert.pfx password (default \""+demoRootPassword+"\")")
	leafPw = addPasswordFlags(cmd, "leaf-password", "SubCert.pfx password (default \""+demoLeafPassword+"\")")
	return cmd
}

func demoPassword(cmd *cobra.Command, p *passwordFlags, fallback string) (string, error) {
	if !p.set() {
		return fallback, nil
	}
	return p.load(cmd)
}

func loadDemoPFX(dir, name, password string) (*cert.IssuedCertificate, error) {
	path := filepath.Join(dir, name+".pfx")
	ic, err := loadCert(path, password)
	if err != nil {
		return nil, err
	}
	info("Loaded " + path)
	return ic, nil
}
