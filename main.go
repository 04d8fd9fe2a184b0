package main

import "github.com/derickschaefer/tally/cmd"

func main() {
	cmd.Execute()
}
