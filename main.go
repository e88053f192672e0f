package main

import "arbor/app/core/interaction/cli"

func main() {
	cli.Execute()
}
