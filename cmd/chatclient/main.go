package main

import "github.com/diogo/chatclient/internal/commands"

func main() {
	commands.Execute()
}
