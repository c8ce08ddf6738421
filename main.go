package main

import "github.com/pders01/livesnap/cmd"

func main() {
	cmd.Execute()
}
