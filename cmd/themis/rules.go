package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/cli"
)

var rulesFlags struct {
	file   string
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate policy rule files",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a policy rule file",
	Long: `Validate a policy rule file for syntax and semantic errors.

The lint command parses the rule file and checks:
  - YAML syntax
  - Version and publication metadata
  - Rule field completeness (IDs, steps, evidence types, severities)
  - Duplicate rule IDs within a version

Examples:
  # Lint a rule file
  themis rules lint --file policy-rules.yaml

  # JSON output for CI
  themis rules lint --file policy-rules.yaml --format json`,
	RunE: lintRules,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the parsed rules of a policy rule file",
	RunE:  showRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd)
	rulesCmd.AddCommand(rulesShowCmd)

	rulesCmd.PersistentFlags().StringVarP(&rulesFlags.file, "file", "f", "", "rule file to read")
	rulesCmd.PersistentFlags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json")

	_ = rulesCmd.MarkPersistentFlagRequired("file")
}

func lintRules(cmd *cobra.Command, args []string) error {
	formatter, ferr := cli.NewFormatter(rulesFlags.format)
	if ferr != nil {
		return ferr
	}

	snapshot, err := catalog.LoadFile(rulesFlags.file)

	if rulesFlags.format == "json" {
		result := map[string]any{"file": rulesFlags.file, "valid": err == nil}
		if err != nil {
			result["error"] = err.Error()
		} else {
			result["version"] = snapshot.Version()
			result["rules"] = snapshot.RuleCount()
		}
		return formatter.FormatTo(os.Stdout, result)
	}

	if err != nil {
		return fmt.Errorf("invalid rule file: %w", err)
	}
	fmt.Printf("✓ %s is valid (version %s, %d rules)\n", rulesFlags.file, snapshot.Version(), snapshot.RuleCount())
	return nil
}

func showRules(cmd *cobra.Command, args []string) error {
	formatter, ferr := cli.NewFormatter(rulesFlags.format)
	if ferr != nil {
		return ferr
	}

	snapshot, err := catalog.LoadFile(rulesFlags.file)
	if err != nil {
		return err
	}

	var rules []catalog.PolicyRule
	for _, step := range snapshot.Steps() {
		rules = append(rules, snapshot.RulesForStep(step)...)
	}

	if rulesFlags.format == "json" {
		return formatter.FormatTo(os.Stdout, rules)
	}

	fmt.Printf("Version: %s (published %s)\n\n", snapshot.Version(), snapshot.PublishedAt().Format("2006-01-02"))
	for _, rule := range rules {
		kind := "optional"
		if rule.Mandatory {
			kind = "mandatory"
		}
		evidence := strings.Join(rule.RequiredEvidenceTypes, ",")
		fmt.Printf("%-24s %-20s %-32s %-9s %s\n", rule.RuleID, rule.Step, evidence, rule.Severity, kind)
	}
	return nil
}
