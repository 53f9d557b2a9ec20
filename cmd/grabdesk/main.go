package main

import (
	"github.com/grabdesk/grabdesk/cmd/grabdesk/commands"
)

func main() {
	commands.Execute()
}
