// Command portreg exposes the shared port registry as a CLI: allocate,
// release, list, clean, status, and clear (spec §6).
package main

import (
	"os"
	"strings"

	"github.com/calvinalkan/devlock/internal/cli"
)

func main() {
	env := environMap()

	os.Exit(cli.RunPortReg(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
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
