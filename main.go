package main

import "github.com/mael-bomane/earn-bot/cmd"

func main() {
	cmd.Execute()
}
