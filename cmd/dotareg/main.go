package main

import "github.com/mcoot/dotareg/internal/cli"

func main() {
	cli.Execute()
}
