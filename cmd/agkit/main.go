package main

import "github.com/oshokin/agkit/cmd/agkit/cmd"

func main() {
	cmd.Execute()
}
