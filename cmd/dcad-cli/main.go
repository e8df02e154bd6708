package main

import (
	"dcad-backend/cmd/dcad-cli/commands"
	"dcad-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
