package main

import (
	"os"

	"github.com/postmanlabs/postman-code-examples/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
