package main

import "permguard-lab/internal/cli"

func main() {
	cli.Execute()
}
