package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/remoteflow/remoteflow/internal/engine"
	"github.com/remoteflow/remoteflow/internal/rules"
	"github.com/remoteflow/remoteflow/internal/shared/cmdutils"
)

var (
	rulesListEnabled bool
	ruleName         string
	ruleCron         string
	ruleCalendar     string
	ruleManual       bool
	ruleActions      []string
	ruleDisabled     bool
	ruleForce        bool
	rulesExportAs    string
)

// ruleFile is the import/export layout. YAML is a superset of JSON, so
// one decoder reads both.
type ruleFile struct {
	Rules []rules.Rule `json:"rules" yaml:"rules"`
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage automation rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules with their enabled state",
	RunE: func(_ *cobra.Command, _ []string) error {
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		list, err := eng.ListRules()
		if err != nil {
			return err
		}
		cmdutils.PrintRules(os.Stdout, filterRules(list, rulesListEnabled))
		return nil
	},
}

// filterRules keeps every rule unless enabledOnly is set.
func filterRules(list []rules.Rule, enabledOnly bool) []rules.Rule {
	if !enabledOnly {
		return list
	}
	var out []rules.Rule
	for _, r := range list {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule",
	Example: `  remoteflow rules add --name "Morning" --cron "0 9 * * 1-5" \
    --action "slack_status:text=Working,emoji=:computer:" --action "start_timer:activity=Deep work"
  remoteflow rules add --name "Join" --calendar meeting_start --action join_meeting`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rule, err := ruleFromFlags()
		if err != nil {
			return err
		}
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		added, err := eng.AddRule(rule)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added rule %q (id: %s)\n", added.Name, added.ID)
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		removed, err := eng.RemoveRule(args[0])
		if err != nil {
			return err
		}
		if removed {
			fmt.Printf("✓ Removed rule %s\n", args[0])
		} else {
			fmt.Printf("Rule %s not found\n", args[0])
		}
		return nil
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return toggleRule(args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return toggleRule(args[0], false)
	},
}

var rulesRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a rule's actions now",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		report, err := eng.RunRule(context.Background(), args[0], ruleForce)
		if errors.Is(err, engine.ErrRuleDisabled) {
			return fmt.Errorf("%w (use --force to run anyway)", err)
		}
		if err != nil {
			return err
		}
		cmdutils.PrintReport(os.Stdout, report)
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add rules from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var f ruleFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		var failed int
		for _, r := range f.Rules {
			added, err := eng.AddRule(r)
			if err != nil {
				failed++
				fmt.Printf("✗ %s: %v\n", r.Name, err)
				continue
			}
			fmt.Printf("✓ %s (id: %s)\n", added.Name, added.ID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d rules not imported", failed, len(f.Rules))
		}
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every rule to stdout",
	RunE: func(_ *cobra.Command, _ []string) error {
		eng, err := loadEngine()
		if err != nil {
			return err
		}
		list, err := eng.ListRules()
		if err != nil {
			return err
		}
		f := ruleFile{Rules: list}
		switch rulesExportAs {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(f)
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(f)
		default:
			return fmt.Errorf("unknown format %q (want yaml or json)", rulesExportAs)
		}
	},
}

func init() {
	rulesListCmd.Flags().BoolVarP(&rulesListEnabled, "enabled", "e", false, "Show only enabled rules")

	rulesAddCmd.Flags().StringVarP(&ruleName, "name", "n", "", "Rule name")
	rulesAddCmd.Flags().StringVar(&ruleCron, "cron", "", "Cron expression for a time trigger (e.g. '0 9 * * 1-5')")
	rulesAddCmd.Flags().StringVar(&ruleCalendar, "calendar", "", "Calendar event type (meeting_start, meeting_end)")
	rulesAddCmd.Flags().BoolVar(&ruleManual, "manual", false, "Only run on demand")
	rulesAddCmd.Flags().StringArrayVar(&ruleActions, "action", nil, "Action as type:key=value,... (repeatable)")
	rulesAddCmd.Flags().BoolVar(&ruleDisabled, "disabled", false, "Add the rule disabled")
	_ = rulesAddCmd.MarkFlagRequired("name")

	rulesRunCmd.Flags().BoolVarP(&ruleForce, "force", "f", false, "Run even if the rule is disabled")
	rulesExportCmd.Flags().StringVar(&rulesExportAs, "format", "yaml", "Output format (yaml, json)")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd, rulesEnableCmd,
		rulesDisableCmd, rulesRunCmd, rulesImportCmd, rulesExportCmd)
}

// ruleFromFlags builds a rule from the add flags. Exactly one trigger flag
// must be set.
func ruleFromFlags() (rules.Rule, error) {
	rule := rules.Rule{Name: ruleName, Enabled: !ruleDisabled}

	triggers := 0
	if ruleCron != "" {
		triggers++
		rule.Trigger = rules.TriggerTime
		rule.TriggerConfig.Time = ruleCron
	}
	if ruleCalendar != "" {
		triggers++
		rule.Trigger = rules.TriggerCalendar
		rule.TriggerConfig.CalendarEventType = rules.CalendarEventType(ruleCalendar)
	}
	if ruleManual {
		triggers++
		rule.Trigger = rules.TriggerManual
	}
	if triggers != 1 {
		return rules.Rule{}, errors.New("specify exactly one of --cron, --calendar or --manual")
	}

	for _, s := range ruleActions {
		a, err := rules.ParseAction(s)
		if err != nil {
			return rules.Rule{}, err
		}
		rule.Actions = append(rule.Actions, a)
	}
	return rule, rule.Validate()
}

func toggleRule(id string, enable bool) error {
	eng, err := loadEngine()
	if err != nil {
		return err
	}
	op, verb := eng.DisableRule, "Disabled"
	if enable {
		op, verb = eng.EnableRule, "Enabled"
	}
	rule, ok, err := op(id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("Rule %s not found\n", id)
		return nil
	}
	fmt.Printf("✓ %s rule %q\n", verb, rule.Name)
	return nil
}

func loadEngine() (*engine.Engine, error) {
	_, c, err := buildContainer()
	if err != nil {
		return nil, err
	}
	return c.Engine(), nil
}
