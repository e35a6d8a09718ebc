package main

import (
	"github.com/dnmp/dnmp/cmd"
	"github.com/dnmp/dnmp/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
