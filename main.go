package main

import (
	"github.com/0xPolygon/interop-edge/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
