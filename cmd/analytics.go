package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remoteflow/remoteflow/internal/analytics"
)

var analyticsJSON bool

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarise this week's commits and tracked time",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, c, err := buildContainer()
		if err != nil {
			return err
		}
		w, err := c.Analytics().Generate(context.Background())
		if err != nil {
			return err
		}
		if analyticsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(w)
		}
		fmt.Println(analytics.Format(w))
		return nil
	},
}

func init() {
	analyticsCmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print JSON instead of text")
}
