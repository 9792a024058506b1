package main

import "grimm.is/iwaf/cmd"

func main() {
	cmd.Main()
}
