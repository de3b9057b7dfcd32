package main

import "github.com/example/travelbook/cmd"

func main() {
	cmd.Execute()
}
