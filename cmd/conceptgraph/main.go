package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		jsonReport bool
		report     bool
	)

	rootCmd := &cobra.Command{
		Use:           "conceptgraph",
		Short:         "Explore dictionary concept graphs and score text complexity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (defaults plus CONCEPTGRAPH_* env when empty)")
	rootCmd.PersistentFlags().BoolVar(&report, "report", false, "Print a run report to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonReport, "json-report", false, "Print the run report as JSON")

	opts := func() runOptions {
		return runOptions{configPath: configPath, report: report, jsonReport: jsonReport}
	}

	var (
		depth            int
		includeStopwords bool
		includePaths     bool
	)
	graphCmd := &cobra.Command{
		Use:   "graph WORD",
		Short: "Build the concept graph around one word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd.Context(), opts(), "graph", args, depth, includeStopwords, includePaths)
		},
	}
	connectCmd := &cobra.Command{
		Use:   "connect SOURCE TARGET",
		Short: "Find the shortest definition chain between two words",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd.Context(), opts(), "connect", args, depth, includeStopwords, includePaths)
		},
	}
	for _, c := range []*cobra.Command{graphCmd, connectCmd} {
		c.Flags().IntVar(&depth, "depth", 2, "Maximum traversal depth")
		c.Flags().BoolVar(&includeStopwords, "include-stopwords", false, "Keep paths through stopwords")
		c.Flags().BoolVar(&includePaths, "paths", false, "Include decoded paths in the output")
	}

	var (
		textFile string
		augment  bool
	)
	complexityCmd := &cobra.Command{
		Use:   "complexity [TEXT]",
		Short: "Compute the complexity index of a text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplexity(cmd.Context(), opts(), args, textFile, augment, cmd.Flags().Changed("augment"))
		},
	}
	complexityCmd.Flags().StringVar(&textFile, "file", "", "Read the text from a file ('-' for stdin)")
	complexityCmd.Flags().BoolVar(&augment, "augment", false, "Augment unknown tokens with encyclopedic summaries")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, health endpoints and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts())
		},
	}

	var edgesOutput string
	edgesCmd := &cobra.Command{
		Use:   "edges",
		Short: "Export definition edges from the dictionary store as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdges(cmd.Context(), opts(), edgesOutput)
		},
	}
	edgesCmd.Flags().StringVar(&edgesOutput, "output", "-", "Output CSV path ('-' for stdout)")

	workflowCmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run explorations and scoring as Temporal workflows",
	}
	workflowExploreCmd := &cobra.Command{
		Use:   "explore WORD [TARGET]",
		Short: "Start an explore workflow and wait for its view",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowExplore(cmd.Context(), opts(), args, depth, includeStopwords)
		},
	}
	workflowExploreCmd.Flags().IntVar(&depth, "depth", 2, "Maximum traversal depth")
	workflowExploreCmd.Flags().BoolVar(&includeStopwords, "include-stopwords", false, "Keep paths through stopwords")

	workflowComplexityCmd := &cobra.Command{
		Use:   "complexity TEXT",
		Short: "Start a complexity workflow and wait for its score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowComplexity(cmd.Context(), opts(), args[0], augment, cmd.Flags().Changed("augment"))
		},
	}
	workflowComplexityCmd.Flags().BoolVar(&augment, "augment", false, "Augment unknown tokens with encyclopedic summaries")
	workflowCmd.AddCommand(workflowExploreCmd, workflowComplexityCmd)

	rootCmd.AddCommand(graphCmd, connectCmd, complexityCmd, serveCmd, edgesCmd, workflowCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
