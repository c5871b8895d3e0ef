package main

import (
	"jobload/cmd"
)

func main() {
	cmd.Execute()
}
