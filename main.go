/*
Copyright 2024 mpapenbr
*/
package main

import "github.com/mpapenbr/pipeflow/cmd"

func main() {
	cmd.Execute()
}
