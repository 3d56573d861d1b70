package main

import "deskhop/cmd"

func main() {
	cmd.Execute()
}
