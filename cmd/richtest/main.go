package main

import "github.com/Ahsanalpha/google-rich-results-automation/cli"

func main() {
	cli.Execute()
}
