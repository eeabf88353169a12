package main

import (
	"github.com/foomo/reportserver/cmd"
)

func main() {
	cmd.Execute()
}
