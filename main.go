package main

import "github.com/tanq16/hiruko/cmd"

func main() {
	cmd.Execute()
}
