package main

import "puzzlepals/internal/cli"

func main() {
	cli.Execute()
}
