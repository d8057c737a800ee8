package main

import (
	"os"

	"github.com/IniZio/skygear-sdk-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
