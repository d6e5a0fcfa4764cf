package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbpostgres "jobtracker/internal/database/postgres"
	"jobtracker/internal/infrastructure/cache"
	"jobtracker/internal/infrastructure/mail"
	"jobtracker/internal/pkg/jwt"
	"jobtracker/internal/repository"
	"jobtracker/internal/usecase/auth"

	"github.com/spf13/cobra"
)

var (
	magicLinkRedirect string
	magicLinkPrint    bool
)

var magicLinkCmd = &cobra.Command{
	Use:   "magic-link <email>",
	Short: "Send a sign-in link",
	Long: `Send a one-time sign-in link to an email address.

The link is stored in Redis so the running server can redeem it. With
--print the message is written to the log instead of being mailed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnv()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		keys := cache.NewRedis(cfg.Redis, log)
		if !keys.Available() {
			return errors.New("redis is required to share sign-in links with the server")
		}
		defer keys.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		db, err := dbpostgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		var mailer mail.Mailer = mail.New(cfg.Mail, log)
		if magicLinkPrint {
			mailer = mail.NewLogMailer(log)
		}

		svc := auth.NewService(
			repository.NewPostgresUserRepository(db),
			jwt.NewHMACService(cfg.JWT.Secret, cfg.JWT.SessionExpiresIn),
			keys,
			mailer,
			auth.Options{SiteURL: cfg.App.SiteURL, LinkTTL: cfg.JWT.MagicLinkExpiresIn},
			log,
		)
		if err := svc.RequestMagicLink(ctx, args[0], magicLinkRedirect); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), auth.NoticeLinkSent)
		return nil
	},
}

func init() {
	magicLinkCmd.Flags().StringVar(&magicLinkRedirect, "redirect", auth.DefaultRedirect, "page to land on after signing in")
	magicLinkCmd.Flags().BoolVar(&magicLinkPrint, "print", false, "log the message instead of mailing it")
}
