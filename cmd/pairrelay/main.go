package main

import "github.com/julienstroheker/pairrelay/server/cmd"

func main() {
	cmd.Execute()
}
