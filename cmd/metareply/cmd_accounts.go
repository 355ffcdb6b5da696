package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/metareply/internal/config"
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsSetCmd, accountsRemoveCmd)
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage platform account credentials",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if len(cfg.Accounts) == 0 {
			fmt.Println("No accounts configured.")
			return nil
		}

		ids := make([]string, 0, len(cfg.Accounts))
		for id := range cfg.Accounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACCOUNT ID\tACCESS TOKEN")
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%s\n", id, maskToken(cfg.Accounts[id]))
		}
		return w.Flush()
	},
}

var accountsSetCmd = &cobra.Command{
	Use:   "set <account-id> <access-token>",
	Short: "Add or update an account's access token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetValue(cfgPath, "accounts."+args[0], args[1]); err != nil {
			return fmt.Errorf("set account: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Account %s configured.\n", args[0])
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if _, ok := cfg.Accounts[args[0]]; !ok {
			return fmt.Errorf("account not found: %s", args[0])
		}
		delete(cfg.Accounts, args[0])
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Account %s removed.\n", args[0])
		return nil
	},
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "***" + token
	}
	return "***" + token[len(token)-4:]
}
