// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"os"

	"github.com/CrawX/go-imap-triage/log"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	err := newApp(os.Stdin, os.Stdout).Run(os.Args)
	if err != nil {
		logger.WithField("error", err).Fatal("Command failed")
	}
}
