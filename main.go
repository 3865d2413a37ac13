package main

import (
	"github.com/nimplane/nimplane/cmd"
)

func main() {
	cmd.Execute()
}
