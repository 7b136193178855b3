package main

import "github.com/bufgate/bufgate/internal/cli"

func main() {
	cli.Execute()
}
