package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-donations/app/jobs"
	"github.com/vibast-solutions/ms-go-donations/app/service"
)

var (
	workerMode bool
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Process queued gateway webhook deliveries",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand("webhooks", jobs.QueueWebhooks)
	},
}

var basketCmd = &cobra.Command{
	Use:   "basket",
	Short: "Deliver queued donation records and newsletter signups",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand("basket", jobs.QueueBasket)
	},
}

func init() {
	rootCmd.AddCommand(webhooksCmd)
	rootCmd.AddCommand(basketCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(name string, queue string) {
	app, cleanup := mustCreateApp()
	defer cleanup()

	registerJobHandlers(app)

	if workerMode {
		runWorker(name, app.cfg.Jobs.WorkerInterval, app.dispatcher, queue)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return app.dispatcher.RunBatch(ctx, queue) })
}

func registerJobHandlers(app *appServices) {
	app.dispatcher.Register(jobs.TypeBraintreeWebhook, app.reconcileService.HandleBraintreeJob)
	app.dispatcher.Register(jobs.TypeStripeWebhook, app.reconcileService.HandleStripeJob)
	app.dispatcher.Register(jobs.TypeSendRecord, service.RecordJobHandler(app.basketClient))
	app.dispatcher.Register(jobs.TypeNewsletterSignup, service.NewsletterJobHandler(app.newsletterClient))
}

func runWorker(name string, interval time.Duration, dispatcher *jobs.Dispatcher, queue string) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return dispatcher.RunBatch(ctx, queue) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return dispatcher.RunBatch(ctx, queue) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
