package main

import (
	"fmt"
	"os"

	"github.com/obelisk-org/obelisk/cmd/obelisk"
)

func main() {
	rootCmd := obelisk.BuildObeliskCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
