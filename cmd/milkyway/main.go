// Command milkyway is the thin CLI host spec.md §1 leaves as an
// implementer's wrapper: certificate-store management plus serve/peer
// commands that exercise the transport service's handshake and ping
// module. It never prints secret key material. It exits 0 on success and
// 1 on any error returned by cobra's Execute; usage errors and
// operational failures share exit code 1.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
