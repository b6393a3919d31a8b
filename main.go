package main

import "github.com/lepinkainen/gamevault/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
