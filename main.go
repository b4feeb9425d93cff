package main

import "github.com/iksnae/aichat-history/cmd"

func main() {
	cmd.Execute()
}
