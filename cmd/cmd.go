package cmd

import (
	"fmt"
	"os"

	"github.com/Nrich-sunny/spiders/cmd/crawl"
	"github.com/Nrich-sunny/spiders/parse"
	"github.com/Nrich-sunny/spiders/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer()
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list available spiders.",
	Long:  "list available spiders.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range parse.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func Execute() {
	var rootCmd = &cobra.Command{
		Use: "spiders",
	}
	rootCmd.AddCommand(crawl.CrawlCmd, listCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
