package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Browse imported lesson structures",
}

var lessonListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lessons that have an element structure",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ids, err := s.LessonRepo().LessonIDs(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		fmt.Printf("\n%d lessons\n", len(ids))
		return nil
	},
}

var lessonShowCmd = &cobra.Command{
	Use:   "show <lesson>",
	Short: "Show a lesson's elements in prerequisite order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		l, err := s.LessonRepo().Structure(commandContext(cmd), args[0])
		if err != nil {
			return err
		}

		// Header.
		fmt.Printf("%5s  %-20s  %-40s  %6s\n", "Order", "ID", "Title", "Weight")
		fmt.Println(strings.Repeat("─", 77))
		for _, el := range l.Sorted() {
			fmt.Printf("%5d  %-20s  %-40s  %6.2f\n", el.Order, truncate(el.ID, 20), truncate(el.Title, 40), el.Weight)
		}
		return nil
	},
}

func init() {
	lessonCmd.AddCommand(lessonListCmd)
	lessonCmd.AddCommand(lessonShowCmd)
}
