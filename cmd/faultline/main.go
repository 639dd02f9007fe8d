package main

import "github.com/strongdm/faultline/internal/cli"

func main() {
	cli.Execute()
}
