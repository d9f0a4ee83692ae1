package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/grading"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <user> <lesson> <submissions.json>",
	Short: "Grade a quiz submission file and update mastery",
	Long:  "Grade a JSON file holding {\"submissions\": [...]} (or a bare array). Use - to read stdin.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[2] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[2])
		}
		if err != nil {
			return fmt.Errorf("read submissions: %w", err)
		}
		subs, err := decodeSubmissions(raw)
		if err != nil {
			return err
		}

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.grading.GradeSubmission(commandContext(cmd), args[0], args[1], subs)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func decodeSubmissions(raw []byte) ([]grading.Submission, error) {
	var wrapped struct {
		Submissions []grading.Submission `json:"submissions"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Submissions != nil {
		return wrapped.Submissions, nil
	}
	var subs []grading.Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return subs, nil
}
