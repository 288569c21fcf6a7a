package main

import "github.com/qaforum/engagement/internal/cmd"

func main() {
	cmd.Execute()
}
