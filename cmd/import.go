package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/grading"
	"github.com/abhisek/atomastery/internal/structure"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import lesson structures or question banks",
}

var importLessonsCmd = &cobra.Command{
	Use:   "lessons <file>...",
	Short: "Import lesson structures from YAML or JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := commandContext(cmd)
		var n int
		for _, path := range args {
			lessons, err := structure.LoadFile(path)
			if err != nil {
				return err
			}
			for _, l := range lessons {
				if err := s.LessonRepo().SaveLesson(ctx, l); err != nil {
					return fmt.Errorf("save lesson %s: %w", l.ID, err)
				}
				n++
			}
		}
		fmt.Printf("Imported %d lessons.\n", n)
		return nil
	},
}

var importQuestionsCmd = &cobra.Command{
	Use:   "questions <file>...",
	Short: "Import question answer keys from YAML or JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		bank := grading.NewStoreBank(s.QuestionRepo())
		ctx := commandContext(cmd)
		var n int
		for _, path := range args {
			qs, err := grading.LoadQuestions(path)
			if err != nil {
				return err
			}
			if err := bank.SaveQuestions(ctx, qs); err != nil {
				return fmt.Errorf("save questions from %s: %w", path, err)
			}
			n += len(qs)
		}
		fmt.Printf("Imported %d questions.\n", n)
		return nil
	},
}

func init() {
	importCmd.AddCommand(importLessonsCmd)
	importCmd.AddCommand(importQuestionsCmd)
}
