package main

import (
	"fader/cmd"
)

func main() {
	cmd.Execute()
}
