package main

import "github.com/kris-hansen/versecraft/cmd"

func main() {
	cmd.Execute()
}
