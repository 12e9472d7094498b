package main

import (
	"fmt"
	"os"

	"github.com/Nooom01/automl-agent-system/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
