package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/anudishu/promote-cleanup/cmd/cli/commands"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
