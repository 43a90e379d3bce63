package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/flowrelay/internal/audit"
	"github.com/ziadkadry99/flowrelay/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded exchanges",
	Long: `Lists the questions relayed while audit.enabled was set, newest first, or
prunes old entries with --prune-before.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of exchanges")
	historyCmd.Flags().String("platform", "", "only show exchanges from this platform")
	historyCmd.Flags().String("outcome", "", "only show exchanges with this outcome")
	historyCmd.Flags().Bool("json", false, "output exchanges as JSON")
	historyCmd.Flags().Duration("prune-before", 0, "delete exchanges older than this age (e.g. 720h) instead of listing")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	platform, _ := cmd.Flags().GetString("platform")
	outcome, _ := cmd.Flags().GetString("outcome")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	pruneBefore, _ := cmd.Flags().GetDuration("prune-before")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Audit.DBPath); err != nil {
		return fmt.Errorf("no history at %s: %w\nSet audit.enabled to record exchanges", cfg.Audit.DBPath, err)
	}

	database, err := db.Open(cfg.Audit.DBPath)
	if err != nil {
		return fmt.Errorf("opening audit database: %w", err)
	}
	defer database.Close()
	store := audit.NewStore(database)

	ctx := cmd.Context()
	if pruneBefore > 0 {
		n, err := store.DeleteBefore(ctx, time.Now().Add(-pruneBefore))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d exchanges older than %s.\n", n, pruneBefore)
		return nil
	}

	exchanges, err := store.Query(ctx, audit.QueryFilter{
		Platform: platform,
		Outcome:  outcome,
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		if exchanges == nil {
			exchanges = []audit.Exchange{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(exchanges)
	}

	if len(exchanges) == 0 {
		fmt.Println("No exchanges recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPLATFORM\tOUTCOME\tSTATUS\tMS\tQUESTION")
	for _, ex := range exchanges {
		status := "-"
		if ex.StatusCode != 0 {
			status = fmt.Sprint(ex.StatusCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			ex.Timestamp.Local().Format(time.DateTime),
			ex.Platform,
			ex.Outcome,
			status,
			ex.ElapsedMS,
			truncate(ex.Question, 60),
		)
	}
	return w.Flush()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
