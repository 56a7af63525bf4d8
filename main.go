package main

import "example.com/eventhub/cmd"

func main() {
	cmd.Execute()
}
