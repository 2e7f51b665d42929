package main

import "github.com/vidscribe/vidscribe/cmd"

func main() {
	cmd.Execute()
}
