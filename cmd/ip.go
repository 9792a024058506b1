package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"grimm.is/iwaf/internal/iplist"
)

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Manage the IP whitelist and blacklist",
}

func listArg(s string) (iplist.Name, error) {
	name, ok := iplist.ParseName(s)
	if !ok {
		return "", fmt.Errorf("unknown list %q (want whitelist or blacklist)", s)
	}
	return name, nil
}

var ipAddCmd = &cobra.Command{
	Use:     "add <whitelist|blacklist> <ip>",
	Short:   "Add an address to a list",
	Example: "  iwaf ip add blacklist 203.0.113.7",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := listArg(args[0])
		if err != nil {
			return err
		}
		out, err := newClient().AddIP(name, args[1])
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var ipRemoveCmd = &cobra.Command{
	Use:     "remove <whitelist|blacklist> <ip>",
	Aliases: []string{"rm"},
	Short:   "Remove an address from a list",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := listArg(args[0])
		if err != nil {
			return err
		}
		out, err := newClient().RemoveIP(name, args[1])
		return reportOutcome(cmd.OutOrStdout(), out, err)
	},
}

var ipListCmd = &cobra.Command{
	Use:     "list <whitelist|blacklist>",
	Aliases: []string{"ls"},
	Short:   "Print a list, one address per line",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := listArg(args[0])
		if err != nil {
			return err
		}
		ips, err := newClient().GetList(name)
		if err != nil {
			return err
		}
		for _, ip := range ips {
			fmt.Fprintln(cmd.OutOrStdout(), ip)
		}
		return nil
	},
}

var ipVerdictCmd = &cobra.Command{
	Use:   "verdict <ip>",
	Short: "Show how the lists classify an address",
	Long: `Show how the lists classify an address. An address on both lists is
reported as blocked; the lists themselves are not changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newClient().Verdict(args[0])
		if err != nil {
			return err
		}
		Printer.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], v)
		return nil
	},
}

func init() {
	ipCmd.AddCommand(ipAddCmd, ipRemoveCmd, ipListCmd, ipVerdictCmd)
	rootCmd.AddCommand(ipCmd)
}
