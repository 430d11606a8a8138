// The main package for the racewatch executable.
package main

import (
	"github.com/racewatch/racewatch/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
