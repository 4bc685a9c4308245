package common

import (
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
)

// GetVersion returns the module version baked in at build time, falling
// back to the VCS revision and finally "dev" when built from a plain
// working tree.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 8 {
			return setting.Value[:8]
		}
	}
	return "dev"
}

// GetModuleBuildInfo returns the module version and git commit recorded at
// build time.
func GetModuleBuildInfo() (string, string, bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	version := info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}

	gitCommit := "unknown"
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			gitCommit = setting.Value
		}
	}

	return version, gitCommit, true
}

// NewInterruptChannel returns a channel that receives SIGINT and SIGTERM,
// used by foreground commands to wait for shutdown.
func NewInterruptChannel() chan os.Signal {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	return sig
}
