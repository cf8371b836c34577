// licscan finds known license texts, notices and references in files.
// Single binary: the index is built once from the rule corpus and cached.
package main

import (
	"os"

	"github.com/corey/licscan/cmd/licscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if code := cmd.ExitCode(err); code >= 0 {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
