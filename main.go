package main

import "github.com/Tiliavir/reception/cmd"

func main() {
	cmd.Execute()
}
