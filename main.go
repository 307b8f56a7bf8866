package main

import (
	"os"

	"github.com/km-arc/go-binding/framework/console"
)

func main() {
	if err := console.Execute(); err != nil {
		os.Exit(1)
	}
}
