package main

import "ganjes_dao/cli"

func main() {
	cli.Execute()
}
