package main

import "github.com/khaledhikmat/vs-live/cmd"

func main() {
	cmd.Execute()
}
