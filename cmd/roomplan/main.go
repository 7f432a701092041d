package main

import "github.com/mistakeknot/roomplan/internal/cli"

func main() {
	cli.Execute()
}
