package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/joshuapare/brkalloc/alloc"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// BuildInfo is the JSON shape of `brkctl version --json`.
type BuildInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	Built      string `json:"built"`
	Go         string `json:"go"`
	Platform   string `json:"platform"`
	HeaderSize int    `json:"header_size"`
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	})
}

func buildInfo() BuildInfo {
	return BuildInfo{
		Version:    version,
		Commit:     commit,
		Built:      date,
		Go:         runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		HeaderSize: alloc.HeaderSize,
	}
}

func runVersion() error {
	info := buildInfo()
	if jsonOut {
		return printJSON(info)
	}
	printInfo("brkctl %s\n", info.Version)
	printInfo("  commit:   %s\n", info.Commit)
	printInfo("  built:    %s\n", info.Built)
	printInfo("  go:       %s (%s)\n", info.Go, info.Platform)
	printInfo("  header:   %d bytes\n", info.HeaderSize)
	return nil
}
