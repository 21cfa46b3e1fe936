package cli

import (
	"context"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/nickromney/certforge/internal/config"
	"github.com/spf13/cobra"
)

// issueFlags are shared by the root and issue commands.
type issueFlags struct {
	outDir       string
	noExport     bool
	failIfExists bool
	friendlyName string
	bits         int
	hash         string
	serial       string
	dns          []string
	ips          []string
	hostNames    bool
	emptySAN     bool
	password     *passwordFlags
}

func addIssueFlags(cmd *cobra.Command, cfg config.Config, bits int) *issueFlags {
	f := &issueFlags{}
	fl := cmd.Flags()
	fl.StringVarP(&f.outDir, "out", "o", "", "Output directory (default from config, else ./keys)")
	fl.BoolVar(&f.noExport, "no-export", false, "Do not write a PFX file")
	fl.BoolVar(&f.failIfExists, "fail-if-exists", false, "Fail instead of keeping an existing PFX")
	fl.StringVar(&f.friendlyName, "friendly-name", "", "Display name (default: NAME)")
	fl.IntVar(&f.bits, "bits", bits, "RSA key size")
	fl.StringVar(&f.hash, "hash", cfg.Hash, "Signature hash: sha256, sha384 or sha512")
	fl.StringVar(&f.serial, "serial", "", "Serial number in hex (default: random)")
	fl.StringSliceVar(&f.dns, "dns", cfg.DNSNames, "DNS subject alternative names")
	fl.StringSliceVar(&f.ips, "ip", nil, "IP subject alternative names")
	fl.BoolVar(&f.hostNames, "host-names", false, "Add this machine's host name and addresses")
	fl.BoolVar(&f.emptySAN, "empty-san", false, "Emit an empty SAN extension when there are no names")
	f.password = addPasswordFlags(cmd, "password", "PFX export password")
	return f
}

func (f *issueFlags) request(cmd *cobra.Command, name string, cfg config.Config) (cert.Request, error) {
	req := cert.Request{
		SubjectName:  name,
		FriendlyName: f.friendlyName,
		KeyBits:      f.bits,
	}

	if f.hash != "" {
		h, err := cert.ParseHash(f.hash)
		if err != nil {
			return req, usageErrorf("%v", err)
		}
		req.Hash = h
	}

	if f.serial != "" {
		b, err := hex.DecodeString(strings.NewReplacer(":", "", " ", "").Replace(f.serial))
		if err != nil {
			return req, usageErrorf("invalid --serial %q: want hex", f.serial)
		}
		req.SerialNumber = b
	}

	ips, err := parseIPs(f.ips)
	if err != nil {
		return req, err
	}
	req.DNSNames = mergeNames(f.dns)
	req.IPAddresses = ips
	if f.hostNames {
		hn, hips := hostSANs()
		req.DNSNames = mergeNames(req.DNSNames, hn)
		req.IPAddresses = append(req.IPAddresses, hips...)
	}
	if f.emptySAN {
		req.EmptySAN = cert.EmitEmptySAN
	}

	if !f.noExport {
		password, err := f.password.load(cmd)
		if err != nil {
			return req, err
		}
		exp := &cert.Export{Dir: resolveOutDir(f.outDir, cfg), Password: password}
		if f.failIfExists {
			exp.IfExists = cert.FailIfExists
		}
		req.Export = exp
	}
	return req, nil
}

// issueAndSave issues reqs in memory, then saves each one so the outcome of
// the existing-file policy can be reported. Several leaf requests are issued
// in parallel.
func issueAndSave(ctx context.Context, engine *cert.Engine, reqs []cert.Request, root bool) ([]*cert.IssuedCertificate, error) {
	exports := make([]*cert.Export, len(reqs))
	bits := 0
	for i := range reqs {
		exports[i] = reqs[i].Export
		reqs[i].Export = nil
		bits = reqs[i].KeyBits

		exp := exports[i]
		if exp != nil && exp.IfExists == cert.FailIfExists {
			// Fail before spending time on key generation.
			path, err := cert.PFXPath(exp.Dir, reqs[i].SubjectName)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(path); err == nil {
				return nil, &cert.OutputExistsError{Path: path, Suggest: cert.NextAvailablePath(path)}
			}
		}
	}

	label := fmt.Sprintf("Generating %d-bit RSA key for %s...", bits, reqs[0].SubjectName)
	if len(reqs) > 1 {
		label = fmt.Sprintf("Generating %d %d-bit RSA keys...", len(reqs), bits)
	}
	var issued []*cert.IssuedCertificate
	err := runWithProgress(ctx, label, func(ctx context.Context) error {
		if root {
			c, err := engine.IssueRootCA(ctx, reqs[0])
			issued = []*cert.IssuedCertificate{c}
			return err
		}
		var err error
		issued, err = engine.IssueAll(ctx, reqs)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, c := range issued {
		success("Issued " + c.Certificate.Subject.String())
		if exports[i] == nil {
			continue
		}
		res, err := engine.SavePFX(c, *exports[i])
		if err != nil {
			return nil, err
		}
		if res.Written {
			success("Wrote: " + res.Path)
		} else {
			warn("Kept existing " + res.Path + " (new certificate not saved)")
		}
	}
	return issued, nil
}

func newRootCACmd(engine *cert.Engine, cfg config.Config) *cobra.Command {
	var years int
	var f *issueFlags
	cmd := &cobra.Command{
		Use:   "root NAME",
		Short: "Issue a self-signed root CA and write NAME.pfx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if years <= 0 {
				return usageErrorf("--years must be positive")
			}
			req, err := f.request(cmd, args[0], cfg)
			if err != nil {
				return err
			}
			req.Issuer = cert.SelfSigned()
			req.ValidTo = time.Now().AddDate(years, 0, 0)

			issued, err := issueAndSave(cmd.Context(), engine, []cert.Request{req}, true)
			if err != nil {
				return err
			}
			printIssued(issued[0])
			return nil
		},
	}
	f = addIssueFlags(cmd, cfg, cfg.RootKeyBits)
	cmd.Flags().IntVar(&years, "years", cfg.RootValidityYears, "Validity in years")
	return cmd
}

func newIssueCmd(engine *cert.Engine, cfg config.Config) *cobra.Command {
	var (
		caPath      string
		days        int
		keyUsage    []string
		extKeyUsage []string
		kuCritical  bool
		ekuCritical bool
		isCA        bool
		pathLen     int
		bcCritical  bool
		selfSigned  bool
	)
	var f *issueFlags
	var caPassword *passwordFlags
	cmd := &cobra.Command{
		Use:   "issue NAME...",
		Short: "Issue certificates signed by a CA PFX and write NAME.pfx for each",
		Long: "Issue a certificate for each NAME. With --ca the certificates are signed by that CA's private key " +
			"(a PFX file); with --self-signed each signs itself. Key usage and extended key usage are " +
			"attached exactly as given, with the criticality chosen by --ku-critical and --eku-critical. " +
			"Several names are issued in parallel and share every other flag.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (caPath == "") == !selfSigned {
				return usageErrorf("use exactly one of --ca or --self-signed")
			}
			if days <= 0 {
				return usageErrorf("--days must be positive")
			}
			if len(args) > 1 && (f.serial != "" || f.friendlyName != "") {
				return usageErrorf("--serial and --friendly-name take a single NAME")
			}

			req, err := f.request(cmd, args[0], cfg)
			if err != nil {
				return err
			}
			req.ValidTo = time.Now().AddDate(0, 0, days)

			if selfSigned {
				req.Issuer = cert.SelfSigned()
			} else {
				pw, err := caPassword.load(cmd)
				if err != nil {
					return err
				}
				parent, err := loadCert(caPath, pw)
				if err != nil {
					return err
				}
				if !parent.HasPrivateKey() {
					return fmt.Errorf("%s has no private key; pass the CA as a PFX", caPath)
				}
				req.Issuer = cert.SignedBy(parent)
			}

			if len(keyUsage) > 0 {
				ku, err := cert.ParseKeyUsage(keyUsage)
				if err != nil {
					return usageErrorf("%v", err)
				}
				req.KeyUsage = &cert.KeyUsagePolicy{Usage: ku, Critical: kuCritical}
			}
			if len(extKeyUsage) > 0 {
				var oids []asn1.ObjectIdentifier
				for _, s := range extKeyUsage {
					oid, err := cert.ParseExtKeyUsage(s)
					if err != nil {
						return usageErrorf("%v", err)
					}
					oids = append(oids, oid)
				}
				req.ExtKeyUsage = &cert.ExtKeyUsagePolicy{OIDs: oids, Critical: ekuCritical}
			}
			if isCA {
				req.Constraints = &cert.BasicConstraints{MaxPathLen: pathLen, Critical: bcCritical}
			}

			reqs := make([]cert.Request, len(args))
			for i, name := range args {
				reqs[i] = req
				reqs[i].SubjectName = name
				if req.Export != nil {
					exp := *req.Export
					reqs[i].Export = &exp
				}
			}
			issued, err := issueAndSave(cmd.Context(), engine, reqs, false)
			if err != nil {
				return err
			}
			for _, ic := range issued {
				printIssued(ic)
			}
			return nil
		},
	}
	f = addIssueFlags(cmd, cfg, cfg.KeyBits)
	caPassword = addPasswordFlags(cmd, "ca-password", "CA PFX password")
	fl := cmd.Flags()
	fl.StringVar(&caPath, "ca", "", "Issuing CA (PFX with private key)")
	fl.BoolVar(&selfSigned, "self-signed", false, "Sign with the certificate's own key")
	fl.IntVar(&days, "days", cfg.LeafValidityDays, "Validity in days")
	fl.StringSliceVar(&keyUsage, "key-usage", []string{"digitalSignature", "keyEncipherment"}, "Key usage names, e.g. keyEncipherment,dataEncipherment")
	fl.StringSliceVar(&extKeyUsage, "eku", []string{"serverAuth"}, "Extended key usage names or OIDs")
	fl.BoolVar(&kuCritical, "ku-critical", false, "Mark key usage critical")
	fl.BoolVar(&ekuCritical, "eku-critical", false, "Mark extended key usage critical")
	fl.BoolVar(&isCA, "is-ca", false, "Add CA basic constraints")
	fl.IntVar(&pathLen, "path-len", cert.NoPathLenConstraint, "CA path length (-1 for none)")
	fl.BoolVar(&bcCritical, "bc-critical", true, "Mark basic constraints critical")
	return cmd
}

func printIssued(ic *cert.IssuedCertificate) {
	if outOpt.quiet {
		return
	}
	s := cert.Summarize(ic)
	kv("Serial", s.Serial)
	kv("Not After", s.NotAfter.Format(time.RFC3339))
	if len(s.SANs) > 0 {
		kv("SANs", cert.FormatSANsShort(s.SANs))
	}
	kv("SHA-256", s.Fingerprint)
}
