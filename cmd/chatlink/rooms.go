package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(roomsCmd)
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List chat rooms and the total unread badge",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newAPIClient(cfg, logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		me, err := client.GetMe(ctx)
		if err != nil {
			return err
		}

		rooms, err := client.ListRooms(ctx, me.UserID)
		if err != nil {
			return err
		}

		if len(rooms) == 0 {
			fmt.Println("No rooms.")
			return nil
		}

		badge := 0
		for _, room := range rooms {
			badge += room.UnreadCount

			marker := " "
			if room.UnreadCount > 0 {
				marker = fmt.Sprintf("(%d)", room.UnreadCount)
			}
			fmt.Printf("%-8d buyer=%-8d seller=%-8d product=%-8d %-5s %s\n",
				room.RoomID, room.BuyerID, room.SellerID, room.ProductID,
				marker, room.LastMessagePreview)
		}

		fmt.Printf("\n%d rooms, %d unread\n", len(rooms), badge)
		return nil
	},
}
