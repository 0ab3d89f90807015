package main

import "appfs/cmd"

func main() {
	cmd.Execute()
}
