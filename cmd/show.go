package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/mastery"
)

var showCmd = &cobra.Command{
	Use:   "show <user> <lesson>",
	Short: "Show a learner's mastery of a lesson",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := commandContext(cmd)
		now := time.Now()
		rec, err := e.mastery.Record(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		lesson, err := e.mastery.Structure(ctx, args[1])
		if errors.Is(err, mastery.ErrStructureMissing) {
			return fmt.Errorf("lesson %q has no element structure; import one first", args[1])
		}
		if err != nil {
			return err
		}
		summary := mastery.Summarize(lesson, rec, now)

		if asJSON {
			return printJSON(map[string]any{"record": rec, "elements": summary})
		}

		fmt.Printf("Lesson %s: %d%% (%s, version %d)\n\n", rec.LessonID, rec.GlobalMastery, rec.Status, rec.Version)
		fmt.Printf("%5s  %-20s  %5s  %4s  %-8s  %-10s  %s\n", "Order", "Element", "Score", "Reps", "Review", "Next", "")
		fmt.Println(strings.Repeat("─", 72))
		for _, s := range summary {
			next := "-"
			if s.NextReview != nil {
				next = s.NextReview.Local().Format("2006-01-02")
			}
			note := ""
			if s.Gated {
				note = "gated"
			}
			fmt.Printf("%5d  %-20s  %5d  %4d  %-8s  %-10s  %s\n",
				s.Order, truncate(s.ElementID, 20), s.Score, s.Reps, s.Review, next, note)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}
