package cli

import (
	"fmt"
	"os"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/nickromney/certforge/internal/config"
	"github.com/nickromney/certforge/internal/logger"
	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

type globalFlags struct {
	noColor bool
	ascii   bool
	quiet   bool
	verbose bool
}

// NewRootCmd creates the cobra root command with all subcommands. cfg
// supplies flag defaults.
func NewRootCmd(engine *cert.Engine, cfg config.Config, buildInfo BuildInfo) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "certforge",
		Short: "Issue X.509 certificates as PFX files and use their RSA keys",
		Long: "certforge issues self-signed root CAs and CA-signed certificates, writes them as " +
			"password-protected PKCS#12 (PFX) files, and encrypts, decrypts, signs and verifies with their RSA keys.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isInteractiveTTY() {
				_ = cmd.Help()
				return &ExitError{Code: 2, Silent: true}
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setOutputOptions(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputOptions{
				color:   colorWanted(g.noColor),
				unicode: !g.ascii,
				quiet:   g.quiet,
			})

			log := logger.Setup(g.verbose, cmd.ErrOrStderr())
			if !g.verbose {
				var err error
				log, err = logger.WithLevel(log, cfg.LogLevel)
				if err != nil {
					return usageErrorf("invalid log_level %q in config", cfg.LogLevel)
				}
			}
			cmd.SetContext(log.WithContext(cmd.Context()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&g.ascii, "ascii", false, "Use ASCII symbols instead of Unicode")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Only print results and errors")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(
		newRootCACmd(engine, cfg),
		newIssueCmd(engine, cfg),
		newEncryptCmd(engine),
		newDecryptCmd(engine),
		newSignCmd(engine),
		newVerifySigCmd(engine),
		newVerifyCmd(engine),
		newShowCmd(),
		newPubkeyCmd(),
		newDemoCmd(engine, cfg),
		newVersionCmd(buildInfo),
	)

	return root
}

func newVersionCmd(buildInfo BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "certforge %s\n", buildInfo.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "build_time: %s\n", buildInfo.BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "git_commit: %s\n", buildInfo.GitCommit)
		},
	}
}

// loadCert loads a PFX, PEM or DER file after checking it exists.
func loadCert(path, password string) (*cert.IssuedCertificate, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	ic, err := cert.LoadFile(path, password)
	if err != nil {
		if cert.IsPFXIncorrectPassword(err) {
			return nil, fmt.Errorf("%w for %s", cert.ErrPFXIncorrectPassword, path)
		}
		return nil, err
	}
	return ic, nil
}

// resolveOutDir picks the flag value, then the configured directory.
func resolveOutDir(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.OutDir != "" {
		return cfg.OutDir
	}
	return "keys"
}

func requireFile(path string) error {
	if path == "" {
		return fmt.Errorf("file path required")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}
	return nil
}
