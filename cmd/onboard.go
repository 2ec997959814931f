package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and data directory",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	path := cfgPath()

	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(path)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, path); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", path)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, path); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", path)
	}

	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fmt.Printf("✓ Data directory at %s\n", dir)

	fmt.Printf("\n%s remoteflow is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your Slack tokens to %s (or set SLACK_USER_TOKEN)\n", path)
	fmt.Println("  2. Add a rule:")
	fmt.Println(`     remoteflow rules add --name "Morning" --cron "0 9 * * 1-5" \`)
	fmt.Println(`       --action "slack_status:text=Working,emoji=:computer:"`)
	fmt.Println("  3. Start the engine: remoteflow run")
	return nil
}
