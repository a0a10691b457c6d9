package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "donations",
	Short: "Donations microservice",
	Long:  "A donation collection microservice for card and PayPal gifts, gateway webhooks, and CRM record delivery.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
