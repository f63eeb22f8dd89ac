// Command pagesim loads data into a simulated paged memory and lets the user
// translate its logical addresses.
package main

import (
	"github.com/sarchlab/pagesim/pagesim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	if err := cmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
