package main

import "github.com/pders01/cclens/cmd"

func main() {
	cmd.Execute()
}
