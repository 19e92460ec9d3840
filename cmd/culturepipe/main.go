package main

import (
	"culturepipe/cmd/culturepipe/commands"
)

func main() {
	commands.Execute()
}
