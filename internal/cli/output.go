package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type outputOptions struct {
	color   bool
	unicode bool
	quiet   bool
}

var (
	outStdout io.Writer = os.Stdout
	outStderr io.Writer = os.Stderr
	outOpt              = outputOptions{color: true, unicode: true}
	outStyle            = newOutputStyles(true)
)

type outputStyles struct {
	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	step    lipgloss.Style
	key     lipgloss.Style
	spinner lipgloss.Style
}

func newOutputStyles(color bool) outputStyles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return outputStyles{
		info:    r.NewStyle().Foreground(lipgloss.Color("4")),
		success: r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")),
		step:    r.NewStyle().Foreground(lipgloss.Color("8")),
		key:     r.NewStyle().Bold(true),
		spinner: r.NewStyle().Foreground(lipgloss.Color("4")),
	}
}

func setOutputOptions(stdout, stderr io.Writer, opt outputOptions) {
	if stdout != nil {
		outStdout = stdout
	}
	if stderr != nil {
		outStderr = stderr
	}
	outOpt = opt
	outStyle = newOutputStyles(opt.color)
}

func sym(unicode, ascii string) string {
	if outOpt.unicode {
		return unicode
	}
	return ascii
}

func info(msg string) {
	if outOpt.quiet {
		return
	}
	fmt.Fprintf(outStdout, "%s  %s\n", outStyle.info.Render("i"), msg)
}

func success(msg string) {
	if outOpt.quiet {
		return
	}
	fmt.Fprintf(outStdout, "%s  %s\n", outStyle.success.Render(sym("✓", "OK")), msg)
}

func warn(msg string) {
	if outOpt.quiet {
		return
	}
	fmt.Fprintf(outStdout, "%s  %s\n", outStyle.warn.Render(sym("!", "WARN")), msg)
}

func errMsg(msg string) {
	fmt.Fprintf(outStderr, "%s  %s\n", outStyle.err.Render(sym("x", "ERR")), msg)
}

func step(msg string) {
	if outOpt.quiet {
		return
	}
	fmt.Fprintf(outStdout, "%s  %s\n", outStyle.step.Render(sym("→", ">")), msg)
}

func kv(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		fmt.Fprintf(outStdout, "  %s\n", value)
		return
	}
	fmt.Fprintf(outStdout, "  %s %s\n", outStyle.key.Render(key+":"), value)
}

// emit writes command results. Unlike status lines it is never silenced.
func emit(s string) {
	fmt.Fprintln(outStdout, s)
}
