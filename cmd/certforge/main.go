package main

import (
	"fmt"
	"os"

	"github.com/nickromney/certforge/internal/cert"
	"github.com/nickromney/certforge/internal/cli"
	"github.com/nickromney/certforge/internal/config"
)

var (
	// Set via -ldflags at build time.
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}

	var opts []cert.Option
	if h, err := cert.ParseHash(cfg.Hash); err == nil {
		opts = append(opts, cert.WithHash(h))
	} else {
		fmt.Fprintf(os.Stderr, "Warning: config hash: %v\n", err)
	}
	engine := cert.NewEngine(opts...)

	buildInfo := cli.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
	root := cli.NewRootCmd(engine, cfg, buildInfo)
	if err := root.Execute(); err != nil {
		code, silent, ok := cli.ExitCode(err)
		if !ok {
			code = 1
		}
		if !silent && err.Error() != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}
