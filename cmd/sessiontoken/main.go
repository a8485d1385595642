// Command sessiontoken issues, verifies and serves session tokens from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
