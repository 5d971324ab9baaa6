package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/leofalp/gemkit/cmd/gemkit/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
