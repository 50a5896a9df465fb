package main

import "github.com/KaramelBytes/nychvs-cli/cmd"

func main() {
	cmd.Execute()
}
