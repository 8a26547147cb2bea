// Command sweep runs one due-reminder pass and exits. It is meant for cron or a
// serverless scheduler; running it twice before reminders are acknowledged sends
// the notifications twice unless REMINDER_REDISPATCH_WINDOW is set.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/db"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
)

func main() {
	checkExpiring := flag.Bool("check-expiring", false, "also create expiration reminders for contracts ending soon")
	timeout := flag.Duration("timeout", 5*time.Minute, "abort the run after this long")
	flag.Parse()

	logger.Initialize()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	database, err := db.Connect(cfg.DSN(), false)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(database)

	store := storage.NewGormStore(database)
	notifications := services.NewNotificationService(store)
	activity := services.NewActivityLogService(store)
	reminders := services.NewReminderService(store, notifications, activity, cfg.Reminders.RedispatchWindow)

	if *checkExpiring {
		res, err := reminders.CheckExpiringContracts(ctx, cfg.Reminders.ExpiringContractDays)
		if err != nil {
			logger.Error("Expiring contract check failed", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Info("Expiring contract check finished", map[string]interface{}{
				"checked":           res.ContractsChecked,
				"reminders_created": res.RemindersCreated,
			})
		}
	}

	res, err := reminders.SweepDueReminders(ctx)
	if err != nil {
		logger.Fatal("Reminder sweep failed", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Reminder sweep complete", map[string]interface{}{
		"processed":          res.Processed,
		"notifications_sent": res.NotificationsSent,
	})
}
