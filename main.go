package main

import "github.com/agentic-research/gears/cmd"

func main() {
	cmd.Execute()
}
