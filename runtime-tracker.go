package main

import (
	"github.com/david082321/runtime-tracker/client/cmd"
)

func main() {
	cmd.Execute()
}
