package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// secretWarnings nudges people away from passwords on the command line,
// once per flag per process.
var secretWarnings = struct {
	sync.Mutex
	enabled bool
	warned  map[string]bool
}{enabled: true, warned: map[string]bool{}}

func setInlineSecretWarnings(enabled bool) {
	secretWarnings.Lock()
	defer secretWarnings.Unlock()
	secretWarnings.enabled = enabled
}

func warnInlineSecretFlag(flagName string) {
	flagName = strings.TrimSpace(flagName)
	if flagName == "" || !isTerminalFn(os.Stderr) {
		return
	}

	secretWarnings.Lock()
	if !secretWarnings.enabled || secretWarnings.warned[flagName] {
		secretWarnings.Unlock()
		return
	}
	secretWarnings.warned[flagName] = true
	secretWarnings.Unlock()

	fmt.Fprintf(outStderr, "Warning: --%s is visible in shell history and process listings. Prefer --%s-stdin or --%s-file.\n",
		flagName, flagName, flagName)
}
