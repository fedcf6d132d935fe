// timestampus - replace typed dates with chat timestamp tokens
//
// Type a trigger anywhere on the desktop:
//
//	timestampus 25.12.2024 18:30 t
//
// and it is replaced by <t:1735151400:t> when the typed time is read as UTC
// (<t:1735147800:t> in Europe/Berlin), which chat clients render in every
// reader's own timezone.
//
//	timestampus run            Watch the keyboard and replace triggers (default)
//	timestampus format         Convert a date and time offline
//	timestampus try            Try triggers in this terminal without a hook
//	timestampus check          Report keyboard, injection and clipboard access
//	timestampus config         Create, show or locate the config file
package main

import (
	"os"

	"timestampus/internal/config"
	"timestampus/internal/logging"
)

var version = "dev"

func newCrashHandler() *logging.CrashHandler {
	return logging.NewCrashHandler(logging.DefaultCrashDir(config.PlatformLogDir()), version, "timestampus")
}

func main() {
	crash := newCrashHandler()
	defer crash.RecoverAndExit()

	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
