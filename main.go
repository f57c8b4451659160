package main

import "skladtrack/cmd"

func main() {
	cmd.Execute()
}
