package main

import "github.com/slimwire/slimwire/cmd"

func main() {
	cmd.Execute()
}
