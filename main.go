package main

import "github.com/alexbotov/pagacollect/internal/cli"

func main() {
	cli.Execute()
}
