package main

import "groundcrew/internal/cli"

func main() {
	cli.Execute()
}
