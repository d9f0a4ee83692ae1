package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events <user> <lesson>",
	Short: "List mastery change events for a learner and lesson",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		element, _ := cmd.Flags().GetString("element")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryMasteryEvents(commandContext(cmd), args[0], args[1], store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No mastery events found.")
			return nil
		}

		// Header.
		fmt.Printf("%-6s  %-19s  %-12s  %-13s  %9s  %7s  %-9s  %s\n",
			"Seq", "Timestamp", "Element", "Reason", "Requested", "Applied", "Mastery", "Status")
		fmt.Println(strings.Repeat("─", 100))

		for _, e := range events {
			if element != "" && e.ElementID != element {
				continue
			}
			reason := e.Reason
			if reason == "" {
				reason = "-"
			}
			fmt.Printf("%-6d  %-19s  %-12s  %-13s  %9d  %7d  %3d → %-3d  %s → %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.ElementID, 12),
				truncate(reason, 13),
				e.RequestedScore,
				e.AppliedScore,
				e.FromMastery, e.ToMastery,
				e.FromStatus, e.ToStatus,
			)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	eventsCmd.Flags().String("element", "", "Only show events for this element")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
