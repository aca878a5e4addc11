package main

import "github.com/nexdatas/nxstools/cmd"

func main() {
	cmd.Execute()
}
