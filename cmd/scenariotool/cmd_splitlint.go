package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scenariotool/internal/lint"
)

var splitlintRulesPath string

var splitlintCmd = &cobra.Command{
	Use:   "splitlint [INPUT]",
	Short: "Split simulator lint output into per-category error lists",
	Long: `Reads simulator lint output from INPUT (or stdin when omitted),
keeps the TRACON-prefixed lines, and writes one file per error category
under the configured lint output directory. Lines matching no category
go to other_errors.txt. A custom ordered rule set can be supplied as a
YAML file via --rules.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplitlint,
}

func init() {
	splitlintCmd.Flags().StringVar(&splitlintRulesPath, "rules", "", "Path to a YAML rules file overriding the built-in categories")
}

func runSplitlint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rules := lint.DefaultRules()
	if splitlintRulesPath != "" {
		rules, err = lint.LoadRules(splitlintRulesPath)
		if err != nil {
			return err
		}
	}

	var input io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open lint output: %w", err)
		}
		defer f.Close()
		input = f
	}

	splitter := lint.NewSplitter(lint.NewClassifier(rules))
	buckets, err := splitter.Split(input)
	if err != nil {
		return fmt.Errorf("failed to read lint output: %w", err)
	}

	counts, err := buckets.WriteDir(cfg.LintOutputDir)
	if err != nil {
		return err
	}

	out := newOutput()
	for _, c := range counts {
		out.Info("%s: %d lines", filepath.Join(cfg.LintOutputDir, c.Category), c.Count)
	}
	return nil
}
