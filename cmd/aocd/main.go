package main

import (
	"aocd/cmd/aocd/commands"
	"aocd/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
