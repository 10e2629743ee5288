package main

import "github.com/KaramelBytes/rfm-cli/cmd"

func main() {
	cmd.Execute()
}
