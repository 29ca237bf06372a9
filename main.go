package main

import "github.com/KaramelBytes/ags-analyzer/cmd"

func main() {
	cmd.Execute()
}
