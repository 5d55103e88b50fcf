// eeebee is a terminal client for the tutoring assistant.
package main

import (
	"os"

	"github.com/edubull/eeebee/cmd/eeebee/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
