package main

import "github.com/mj1618/rum-replay/cmd"

func main() {
	cmd.Execute()
}
