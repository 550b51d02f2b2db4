package main

import "library-lms/cli"

func main() {
	cli.Execute()
}
