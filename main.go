package main

import (
	"github.com/marcorisi/discount-codes/cmd"
	_ "github.com/marcorisi/discount-codes/cmd/cli"
	_ "github.com/marcorisi/discount-codes/cmd/server"
)

func main() {
	cmd.Execute()
}
