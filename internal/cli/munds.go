package cli

import (
	"fmt"
	"strconv"
	"strings"

	"weighbridge-backend/internal/weighing"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mundsCmd)
}

// ─── munds ──────────────────────────────────────────────────────────────────

var mundsCmd = &cobra.Command{
	Use:   "munds KG...",
	Short: "Convert kilograms to munds",
	Long:  `Print each kilogram value split into munds (40 kg) and a kilogram remainder.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMunds,
}

func runMunds(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, arg := range args {
		kg, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(arg), "kg"), 64)
		if err != nil {
			return fmt.Errorf("%q is not a weight in kg", arg)
		}
		fmt.Fprintf(out, "%g kg = %s\n", kg, weighing.ToMunds(kg))
	}
	return nil
}
