package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketlane/chatlink/internal/api"
)

var openReq api.OpenRoomRequest

func init() {
	openCmd.Flags().Int64Var(&openReq.BuyerID, "buyer", 0, "buyer user id (defaults to the signed-in user)")
	openCmd.Flags().Int64Var(&openReq.SellerID, "seller", 0, "seller user id")
	openCmd.Flags().Int64Var(&openReq.ProductID, "product", 0, "product id")
	openCmd.Flags().Int64Var(&openReq.DealID, "deal", 0, "deal id (optional)")
	openCmd.MarkFlagRequired("seller")
	openCmd.MarkFlagRequired("product")
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open (or reuse) the room for a buyer/seller/product tuple",
	Long: "Opens the chat room for a buyer, seller and product. The same tuple\n" +
		"always resolves to the same room, so repeating the command is safe.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newAPIClient(cfg, logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if openReq.BuyerID == 0 {
			me, err := client.GetMe(ctx)
			if err != nil {
				return err
			}
			openReq.BuyerID = me.UserID
		}

		result, err := client.OpenRoom(ctx, openReq)
		if err != nil {
			return err
		}

		state := "existing"
		if result.Created {
			state = "created"
		}
		fmt.Printf("room %d (%s) %s\n", result.RoomID, state, result.Identifier)
		return nil
	},
}
