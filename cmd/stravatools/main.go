package main

import (
	"stravatools/cmd/stravatools/commands"
	"stravatools/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
