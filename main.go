// The main package for the avatar-resolver executable.
package main

import (
	"github.com/JakeFAU/profile-image-resolver/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
