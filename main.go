package main

import "github.com/samogod/trainconf/cmd"

func main() {
	cmd.Execute()
}
