package main

import "cardiorisk/cli"

func main() {
	cli.Execute()
}
