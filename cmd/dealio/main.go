package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dealio",
		Short:         "Scrape Craigslist listings, score them as deals, and serve the best ones",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scrapeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(dealsCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(pingCmd())

	return root
}

func scrapeCmd() *cobra.Command {
	var (
		reset   bool
		seed    bool
		markets []string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one ingestion pass over every market and category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(reset, seed, markets)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate the listings table first")
	cmd.Flags().BoolVar(&seed, "seed", false, "insert sample listings when the table is empty")
	cmd.Flags().StringSliceVar(&markets, "market", nil, "specific markets to scrape (e.g., chicago,dallas)")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduled scraping and the read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func dealsCmd() *cobra.Command {
	var (
		jsonOutput bool
		minScore   float64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Show the best stored deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeals(jsonOutput, minScore, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum deal score (0-100)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max deals to show (1-100)")
	return cmd
}

func resetCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the listings table (destroys all data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(seed)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "insert sample listings afterwards")
	return cmd
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPing()
		},
	}
}
