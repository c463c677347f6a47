package main

import (
	cmd "github.com/Nwokike/museum-harvester/internal/cli"
)

func main() {
	cmd.Execute()
}
