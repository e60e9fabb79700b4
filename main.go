package main

import "github.com/hollyrath/scrybot/cmd"

func main() {
	cmd.Execute()
}
