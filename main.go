package main

import "github.com/llumnix-go/fleetsched/cmd"

// fleetsched's binary is a thin Cobra wrapper; all subcommand logic lives
// under cmd/.
func main() {
	cmd.Execute()
}
