package main

import (
	"os"

	"github.com/yolodolo42/safe7579/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
