package main

import "github.com/remoteflow/remoteflow/cmd"

func main() {
	cmd.Execute()
}
