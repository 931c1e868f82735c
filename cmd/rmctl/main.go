package main

import (
	"github.com/robotalks/wirefree.go/pkg/cli/sh"
	"github.com/robotalks/wirefree.go/pkg/serial"

	_ "github.com/robotalks/wirefree.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	serial.SetupFlags()
}

func main() {
	sh.Main()
}
