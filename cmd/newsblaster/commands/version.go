package commands

import (
	"fmt"

	"newsblaster/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(_ *Global, _ *CLI) error {
	fmt.Printf("newsblaster %s\n", version.String())
	return nil
}
