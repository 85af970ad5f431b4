package main

import "panelbridge/cmd"

func main() {
	cmd.Execute()
}
