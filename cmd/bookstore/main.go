package main

import (
	"context"

	bookgin "github.com/cidali/bookstore/adapters/gin"
	"github.com/cidali/bookstore/adapters/ginutil"
	"github.com/cidali/bookstore/config"
	"github.com/cidali/bookstore/content"
	core "github.com/cidali/bookstore/core"
	"github.com/cidali/bookstore/entitlements"
	"github.com/cidali/bookstore/mail"
	"github.com/cidali/bookstore/mpesa"
	memorylimiter "github.com/cidali/bookstore/ratelimit/memory"
	redislimiter "github.com/cidali/bookstore/ratelimit/redis"
	memorystore "github.com/cidali/bookstore/storage/memory"
	redisstore "github.com/cidali/bookstore/storage/redis"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration invalid")
	}

	// Redis backs both the token store and the limiter when configured;
	// otherwise everything is in-process.
	var store entitlements.Store
	var rl ginutil.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = redisstore.New(rdb, "")
		rl = redislimiter.New(rdb, nil)
		log.WithField("addr", cfg.RedisAddr).Info("using redis token store")
	} else {
		store = memorystore.New()
		rl = memorylimiter.New(nil)
		log.Info("using in-memory token store")
	}

	gateway := mpesa.New(mpesa.Config{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
		BaseURL:        cfg.MpesaBaseURL,
	}, nil)

	notifier := mail.New(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPass,
		AdminTo:  cfg.AdminTo,
		AdminCC:  cfg.AdminCC,
	})

	svc := core.NewService(store, gateway, notifier, core.Options{
		EbookFile:     cfg.EbookFile,
		TokenTTL:      cfg.TokenTTL,
		PublicBaseURL: cfg.PublicBaseURL,
	}, log)
	gate := content.NewGate(store, cfg.ContentDir)

	// Scheduled sweep keeps unredeemed tokens from accumulating; Validate's
	// lazy eviction remains the correctness backstop.
	sweeper := cron.New()
	sweeper.AddFunc("@every 1m", func() {
		if n, err := store.Sweep(context.Background()); err != nil {
			log.WithError(err).Warn("token sweep failed")
		} else if n > 0 {
			log.WithField("removed", n).Debug("token sweep")
		}
	})
	sweeper.Start()
	defer sweeper.Stop()

	r := bookgin.NewRouter(svc, gate, rl)
	log.WithField("port", cfg.HTTPPort).Info("server starting")
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
