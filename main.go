package main

import "github.com/lu-zhengda/mailpeek/internal/cli"

func main() {
	cli.Execute()
}
