package commands

import (
	"fmt"
	"path/filepath"

	"newsblaster/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for the generated config file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	// If the user specified an output directory, place the config there as "newsblaster.yaml".
	if i.Output != "" {
		cfgPath := filepath.Join(i.Output, "newsblaster.yaml")
		return RunInit(cfgPath, i.Force)
	}
	return RunInit(root.Config, i.Force)
}

func RunInit(configPath string, force bool) error {
	// Provide friendly user-facing messages on stdout for CLI integration tests.
	fmt.Println("Initializing newsblaster project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("initialized successfully")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Put your GitHub token in %s\n", filepath.Join(filepath.Dir(configPath), ".env"))
	fmt.Printf("  2. Adjust the feed query and publish repository in %s\n", configPath)
	fmt.Println("  3. Run 'newsblaster run' to fetch and publish")
	return nil
}
