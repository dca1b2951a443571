package main

import "github.com/templetwo/breakthrough/internal/cli"

func main() {
	cli.Execute()
}
