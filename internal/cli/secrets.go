package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// passwordFlags is the --NAME / --NAME-stdin / --NAME-file triplet for one
// PFX password. An empty password is valid.
type passwordFlags struct {
	name      string
	value     string
	fromStdin bool
	fromFile  string
}

func addPasswordFlags(cmd *cobra.Command, name, usage string) *passwordFlags {
	p := &passwordFlags{name: name}
	cmd.Flags().StringVar(&p.value, name, "", usage)
	cmd.Flags().BoolVar(&p.fromStdin, name+"-stdin", false, "Read "+name+" from stdin")
	cmd.Flags().StringVar(&p.fromFile, name+"-file", "", "Read "+name+" from file (- for stdin)")
	return p
}

func (p *passwordFlags) set() bool {
	return p.value != "" || p.fromStdin || strings.TrimSpace(p.fromFile) != ""
}

// load resolves the password from whichever of the three flags was given.
func (p *passwordFlags) load(cmd *cobra.Command) (string, error) {
	given := 0
	for _, b := range []bool{p.value != "", p.fromStdin, strings.TrimSpace(p.fromFile) != ""} {
		if b {
			given++
		}
	}
	if given > 1 {
		return "", usageErrorf("use only one of --%s, --%s-stdin, or --%s-file", p.name, p.name, p.name)
	}

	switch {
	case p.fromStdin:
		return p.readStdin(cmd)
	case strings.TrimSpace(p.fromFile) != "":
		path := strings.TrimSpace(p.fromFile)
		if path == "-" {
			return p.readStdin(cmd)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return trimSecret(b), nil
	}
	if p.value != "" {
		warnInlineSecretFlag(p.name)
	}
	return p.value, nil
}

func (p *passwordFlags) readStdin(cmd *cobra.Command) (string, error) {
	// Never block on a person's terminal; the secret must be piped in.
	if isTerminalFn(os.Stdin) {
		return "", usageErrorf("--%s-stdin requires stdin to be piped/redirected", p.name)
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return trimSecret(b), nil
}

// trimSecret drops trailing newlines only; passwords may contain spaces.
func trimSecret(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}
