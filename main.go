package main

import "drivebot/cmd"

func main() {
	cmd.Execute()
}
