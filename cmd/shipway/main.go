package main

import "github.com/shipway/shipway/cmd/shipway/cmd"

func main() {
	cmd.Execute()
}
