package main

import (
	"github.com/pinchat/pinchat/internal/cli"
)

func main() {
	cli.Execute()
}
