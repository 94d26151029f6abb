// Command nsmrun is a command-line interface for running stochastic
// reaction-diffusion simulations with the Next Subvolume Method.
package main

import (
	"fmt"
	"os"

	"github.com/rdsim/nsm/nsmutil"
)

func main() {
	cfg := nsmutil.InitializeConfig()
	if err := cfg.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
