package main

import "github.com/julienstroheker/pairrelay/client/cmd"

func main() {
	cmd.Execute()
}
