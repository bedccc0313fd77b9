package main

import (
	"github.com/xkilldash9x/widgetprobe/cmd"
)

func main() {
	cmd.Execute()
}
