package main

import "github.com/bldsys/bld/cmd"

func main() {
	cmd.Execute()
}
