package main

import "dietnotify/cmd"

func main() {
	cmd.Execute()
}
