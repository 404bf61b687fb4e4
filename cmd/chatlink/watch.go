package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marketlane/chatlink/internal/archive"
	"github.com/marketlane/chatlink/internal/database"
	"github.com/marketlane/chatlink/internal/model"
	"github.com/marketlane/chatlink/internal/session"
	broadcast "github.com/marketlane/chatlink/internal/signal"
	"github.com/marketlane/chatlink/internal/unread"
)

var watchRoom int64

func init() {
	watchCmd.Flags().Int64Var(&watchRoom, "room", 0, "room id to watch")
	watchCmd.MarkFlagRequired("room")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a room live, printing messages as they arrive",
	Long: "Connects the realtime channel, subscribes to one room, and prints\n" +
		"messages as they arrive. Incoming messages are marked read. Runs until\n" +
		"interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newAPIClient(cfg, logger)

		me, err := client.GetMe(ctx)
		if err != nil {
			return err
		}
		logger.Info("signed in", "user_id", me.UserID, "name", me.DisplayName)

		readSig := broadcast.New()
		defer readSig.Close()

		// Optional local transcript archive
		var arch *archive.Archiver
		if cfg.Archive.Enabled {
			pool, err := database.Connect(ctx, cfg.Archive.Database)
			if err != nil {
				return fmt.Errorf("archive database: %w", err)
			}
			defer pool.Close()

			arch = archive.New(archive.Config{
				BatchSize:     cfg.Archive.BatchSize,
				FlushInterval: cfg.Archive.FlushInterval,
			}, pool, logger)
			if err := arch.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("archive schema: %w", err)
			}
			arch.Start(ctx)
			defer arch.Stop()
		}

		var sess *session.Session
		sink := func(m model.Message) {
			printMessage(me.UserID, m)
			if arch != nil {
				arch.Record(m)
			}
			if m.SenderID != me.UserID {
				if err := sess.MarkRead(m.ID); err != nil {
					logger.Debug("mark read failed", "error", err)
				}
			}
		}

		sess = session.New(sessionConfig(cfg), logger,
			session.WithHistory(client),
			session.WithReadSignal(readSig),
			session.WithConfirmedSink(sink),
		)

		if err := sess.Connect(ctx, *me); err != nil {
			return err
		}
		defer sess.Disconnect()

		if err := sess.SetActiveRoom(ctx, watchRoom); err != nil {
			return err
		}

		for _, m := range sess.Messages() {
			printMessage(me.UserID, m)
		}

		// Badge polling rides the same read broadcasts as the session
		agg := unread.New(unread.Config{
			Interval:       cfg.Unread.Interval,
			RequestTimeout: cfg.Unread.RequestTimeout,
		}, client, logger, unread.WithReadSignal(readSig))
		agg.Start(ctx, me.UserID)
		defer agg.Stop()

		if cfg.Metrics.Port > 0 {
			path := cfg.Metrics.Path
			if path == "" {
				path = "/metrics"
			}
			mux := http.NewServeMux()
			mux.Handle(path, promhttp.Handler())
			srv := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
				Handler: mux,
			}
			go func() {
				logger.Info("metrics server listening", "port", cfg.Metrics.Port, "path", path)
				if err := srv.ListenAndServe(); err != http.ErrServerClosed {
					logger.Error("metrics server error", "error", err)
				}
			}()
			defer srv.Close()
		}

		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	},
}

func printMessage(selfID int64, m model.Message) {
	marker := "<"
	if m.SenderID == selfID {
		marker = ">"
	}
	ts := time.UnixMicro(m.Timestamp).Format("15:04:05")

	text := m.Text
	if m.ImageURL != "" {
		text = fmt.Sprintf("%s [image: %s]", text, m.ImageURL)
	}
	fmt.Printf("%s %s %d: %s\n", ts, marker, m.SenderID, text)
}
