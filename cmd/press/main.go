package main

import "github.com/goliatone/go-press/cmd/press/cmd"

func main() {
	cmd.Execute()
}
