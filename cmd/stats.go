package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/atomastery/internal/gems"
)

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show a learner's coins and gems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		svc := gems.NewService(s.EventRepo(), nil, nil)
		ctx := commandContext(cmd)
		w, err := svc.Wallet(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load wallet: %w", err)
		}

		fmt.Printf("Coins: %d\n", w.Coins)
		fmt.Printf("Gems:  %d\n", w.Total)
		for _, r := range gems.AllRarities() {
			if n := w.ByRarity[string(r)]; n > 0 {
				fmt.Printf("  %-10s %d\n", r.DisplayName(), n)
			}
		}

		recent, err := svc.History(ctx, args[0], 10)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		if len(recent) == 0 {
			return nil
		}
		fmt.Println()
		fmt.Printf("%-19s  %-20s  %-9s  %-10s  %5s\n", "Awarded", "Lesson", "Type", "Rarity", "Coins")
		fmt.Println(strings.Repeat("─", 72))
		for _, a := range recent {
			fmt.Printf("%-19s  %-20s  %-9s  %-10s  %5d\n",
				a.AwardedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(a.LessonID, 20), a.Type.DisplayName(), a.Rarity.DisplayName(), a.Coins)
		}
		return nil
	},
}
