// The main package for the indexselect executable.
package main

import (
	"github.com/ntuwsl/indexselect/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
