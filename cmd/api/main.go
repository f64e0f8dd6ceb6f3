package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/paycrow/paycrow-backend-go/internal/config"
	"github.com/paycrow/paycrow-backend-go/internal/domain/oracle"
	appHTTP "github.com/paycrow/paycrow-backend-go/internal/handler/http"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/cron"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/database"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/pricefeed"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/sse"
	"github.com/paycrow/paycrow-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/paycrow/paycrow-backend-go/internal/service/auth"
	"github.com/paycrow/paycrow-backend-go/internal/service/converter"
	ledgerService "github.com/paycrow/paycrow-backend-go/internal/service/ledger"
	notificationService "github.com/paycrow/paycrow-backend-go/internal/service/notification"
	offerService "github.com/paycrow/paycrow-backend-go/internal/service/offer"
	upkeepService "github.com/paycrow/paycrow-backend-go/internal/service/upkeep"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	accountRepo := postgresql.NewAccountRepository(db)
	offerRepo := postgresql.NewOfferRepository(db)
	paymentRepo := postgresql.NewPaymentRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()

	var rates oracle.RateSource
	switch cfg.Oracle.Source {
	case "http":
		rates = pricefeed.NewClient(cfg.Oracle.FeedURL)
	default:
		rates = pricefeed.NewStaticDefaults()
	}

	operatorFee, err := decimal.NewFromString(cfg.Upkeep.OperatorFee)
	if err != nil {
		log.Fatal("Invalid OPERATOR_FEE: ", err)
	}
	conv := converter.NewConverter(rates, operatorFee, cfg.Oracle.MaxRateAge)

	authSvc := serviceAuth.NewAuthService(accountRepo, jwtService)
	ledgerSvc := ledgerService.NewLedgerService(db, conv, hub, cfg.Upkeep.OperatorAccountID, accountRepo, offerRepo, paymentRepo, notificationRepo)
	offerSvc := offerService.NewOfferService(db, conv, hub, accountRepo, offerRepo, paymentRepo, notificationRepo)
	upkeepSvc := upkeepService.NewUpkeepService(offerRepo, offerSvc)
	notificationSvc := notificationService.NewNotificationService(notificationRepo)

	authHandler := appHTTP.NewAuthHandler(authSvc)
	ledgerHandler := appHTTP.NewLedgerHandler(ledgerSvc)
	offerHandler := appHTTP.NewOfferHandler(ledgerSvc, offerSvc)
	upkeepHandler := appHTTP.NewUpkeepHandler(upkeepSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notificationSvc, jwtService, hub)

	if cfg.Upkeep.Enabled {
		scheduler := cron.NewScheduler()
		jobs := cron.NewUpkeepJobs(upkeepSvc, cfg.Upkeep.OperatorAccountID)
		jobs.RegisterJobs(scheduler, cfg.Upkeep.Interval)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := appHTTP.NewRouter(jwtService, authHandler, ledgerHandler, offerHandler, upkeepHandler, notificationHandler)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Println("Server is running on port", cfg.App.Port)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal("Server error: ", err)
	}
}
