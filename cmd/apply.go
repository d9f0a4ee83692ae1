package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/mastery"
)

var applyCmd = &cobra.Command{
	Use:   "apply <user> <lesson> <element|ALL> <score>",
	Short: "Apply an observed score to a lesson element",
	Long: "Apply an observed 0-100 score to one element, or to every element with ALL.\n" +
		"With --delta the score is added to the element's stored score instead.",
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[3], err)
		}
		reason, _ := cmd.Flags().GetString("reason")
		delta, _ := cmd.Flags().GetBool("delta")

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := commandContext(cmd)
		var res *mastery.Result
		if delta {
			res, err = e.mastery.ApplyElementDelta(ctx, mastery.Delta{
				UserID: args[0], LessonID: args[1], ElementID: args[2], Delta: score, Reason: reason,
			})
		} else {
			res, err = e.mastery.ApplyElementUpdate(ctx, mastery.Update{
				UserID: args[0], LessonID: args[1], ElementID: args[2], Score: score, Reason: reason,
			})
		}
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	applyCmd.Flags().String("reason", "", "Update reason (quiz_perfect bypasses damping)")
	applyCmd.Flags().Bool("delta", false, "Treat the score as a change to the stored score")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
