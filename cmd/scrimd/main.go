// Command scrimd runs the scrim backdrop sync daemon and its companion
// subcommands.
package main

import "github.com/papapumpkin/scrim/cmd"

func main() {
	cmd.Execute()
}
