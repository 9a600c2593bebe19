package main

import "github.com/Yates-Labs/verbatim/cmd"

func main() {
	cmd.Execute()
}
