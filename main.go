package main

import (
	"github.com/opendap/olfs/cli"
)

func main() {
	cli.Run()
}
