package main

import "github.com/jfmyers9/lyricqueue/cmd"

func main() {
	cmd.Execute()
}
