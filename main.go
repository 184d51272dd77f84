package main

import "github.com/nonandgoku/Vita3K/cmd"

func main() {
	cmd.Execute()
}
