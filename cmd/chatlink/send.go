package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marketlane/chatlink/internal/model"
	"github.com/marketlane/chatlink/internal/session"
)

var (
	sendRoom  int64
	sendText  string
	sendImage string
)

func init() {
	sendCmd.Flags().Int64Var(&sendRoom, "room", 0, "room id")
	sendCmd.Flags().StringVar(&sendText, "text", "", "message text")
	sendCmd.Flags().StringVar(&sendImage, "image", "", "image URL (optional)")
	sendCmd.MarkFlagRequired("room")
	sendCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one message and wait for delivery confirmation",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newAPIClient(cfg, logger)

		me, err := client.GetMe(cmd.Context())
		if err != nil {
			return err
		}

		sess := session.New(sessionConfig(cfg), logger)
		if err := sess.Connect(cmd.Context(), *me); err != nil {
			return err
		}
		defer sess.Disconnect()

		if err := sess.SetActiveRoom(cmd.Context(), sendRoom); err != nil {
			return err
		}

		tempID := uuid.NewString()
		if sendImage != "" {
			err = sess.SendImage(sendText, sendImage, tempID)
		} else {
			err = sess.Send(sendText, tempID)
		}
		if err != nil {
			return err
		}

		confirmTimeout := sessionConfig(cfg).ConfirmTimeout
		deadline := time.Now().Add(confirmTimeout)
		for time.Now().Before(deadline) {
			for _, m := range sess.Messages() {
				if m.TempID == tempID && m.State == model.Confirmed {
					fmt.Printf("delivered id=%d\n", m.ID)
					return nil
				}
			}
			time.Sleep(100 * time.Millisecond)
		}

		return fmt.Errorf("message not confirmed within %s", confirmTimeout)
	},
}
