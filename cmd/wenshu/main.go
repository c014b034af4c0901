package main

import "wenshu-pipeline/cmd/wenshu/commands"

func main() {
	commands.Execute()
}
