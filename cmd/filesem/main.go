// Command filesem exposes the file-based semaphore core as a CLI: try
// acquire, blocking acquire, release, status, and stale cleanup (spec §6).
package main

import (
	"os"
	"strings"

	"github.com/calvinalkan/devlock/internal/cli"
)

func main() {
	env := environMap()

	os.Exit(cli.RunFileSem(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}

func environMap() map[string]string {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	return env
}
