package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "worklogctl",
	Short: "worklogctl – admin CLI for the work log approval service",
	Long: `worklogctl operates directly on the configured work log backend.
It reads the same environment variables as worklogd (DATA_BACKEND,
SQLITE_DB_PATH, ...), so point it at the server's database or run it
against the in-memory backend for a scratch session.`,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(seedTaskCmd)
}
