package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/basket"
	"github.com/vibast-solutions/ms-go-donations/app/controller"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/gateway"
	"github.com/vibast-solutions/ms-go-donations/app/jobs"
	"github.com/vibast-solutions/ms-go-donations/app/repository"
	"github.com/vibast-solutions/ms-go-donations/app/service"
	"github.com/vibast-solutions/ms-go-donations/app/session"
	"github.com/vibast-solutions/ms-go-donations/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the Echo HTTP server for donation, upsell, newsletter, and webhook endpoints.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	app, cleanup := mustCreateApp()
	defer cleanup()

	donationController := controller.NewDonationController(app.donationService)
	webhookController := controller.NewWebhookController(app.dispatcher)

	e := setupHTTPServer(donationController, webhookController)

	go func() {
		httpAddr := net.JoinHostPort(app.cfg.HTTP.Host, app.cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	donationController *controller.DonationController,
	webhookController *controller.WebhookController,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", donationController.Health)

	donations := e.Group("/donations")
	donations.POST("/card", donationController.DonateCard)
	donations.POST("/paypal", donationController.DonatePaypal)
	donations.POST("/upsell", donationController.Upsell)
	donations.GET("/completed", donationController.Completed)

	e.POST("/newsletter/signup", donationController.NewsletterSignup)

	webhooks := e.Group("/webhooks")
	webhooks.POST("/braintree", webhookController.HandleBraintree)
	webhooks.POST("/stripe", webhookController.HandleStripe)

	return e
}

// appServices is the wired object graph shared by the server and the
// worker commands.
type appServices struct {
	cfg              *config.Config
	dispatcher       *jobs.Dispatcher
	donationService  *service.DonationService
	reconcileService *service.ReconcileService
	basketClient     *basket.Client
	newsletterClient *service.NewsletterClient
}

func mustCreateApp() (*appServices, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	jobRepo := repository.NewJobRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	dispatcher := jobs.NewDispatcher(jobRepo, cfg.Jobs.BatchSize)
	sessions := session.NewWriter(sessionRepo)

	braintreeGateway := gateway.NewBraintreeGateway(gateway.BraintreeConfig{
		MerchantID:  cfg.Braintree.MerchantID,
		PublicKey:   cfg.Braintree.PublicKey,
		PrivateKey:  cfg.Braintree.PrivateKey,
		UseSandbox:  cfg.Braintree.UseSandbox,
		HTTPTimeout: cfg.Braintree.HTTPTimeout,
	})
	stripeGateway := gateway.NewStripeGateway(gateway.StripeConfig{
		APIKey:                    cfg.Stripe.APIKey,
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
		HTTPTimeout:               cfg.Stripe.HTTPTimeout,
	})

	basketClient, err := basket.NewClient(context.Background(), basket.Config{
		QueueURL:        cfg.Basket.SQSQueueURL,
		Region:          cfg.Basket.AWSRegion,
		AccessKeyID:     cfg.Basket.AWSAccessKeyID,
		SecretAccessKey: cfg.Basket.AWSSecretKey,
	})
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to initialize basket SQS client")
	}
	newsletterClient := service.NewNewsletterClient(cfg.Basket.APIRootURL, cfg.Basket.HTTPTimeout)

	builder := service.NewTransactionBuilder(cfg.Braintree)
	donationService := service.NewDonationService(
		braintreeGateway,
		builder,
		sessions,
		dispatcher,
		factory.NewModuleLogger("donations-service"),
	)
	reconcileService := service.NewReconcileService(
		gateway.NewRegistry(braintreeGateway, stripeGateway),
		braintreeGateway,
		stripeGateway,
		basketClient,
		cfg.App.SiteURL,
		factory.NewModuleLogger("reconcile-service"),
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	app := &appServices{
		cfg:              cfg,
		dispatcher:       dispatcher,
		donationService:  donationService,
		reconcileService: reconcileService,
		basketClient:     basketClient,
		newsletterClient: newsletterClient,
	}
	return app, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
