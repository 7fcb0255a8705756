package main

import "github.com/quantlab/breakout/internal/cli"

func main() {
	cli.Execute()
}
