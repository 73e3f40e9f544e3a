package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nutrascan/internal/infra"
	"nutrascan/internal/sqlinline"
)

// grantpremium flips the premium flag on a profile without going through
// Stripe. Meant for support cases and manual comps; regular activation is
// webhook-driven.
func main() {
	var (
		idFlag     string
		emailFlag  string
		revokeFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "profile ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "profile email to update")
	flag.BoolVar(&revokeFlag, "revoke", false, "revoke premium instead of granting it")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantpremium").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
	var profile struct {
		ID        string
		GoogleSub string
		Email     string
		Name      string
		IsPremium bool
		FreeUsed  int
		StripeCID string
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	var scanErr error
	if userID != "" {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectProfileByID, userID)
		scanErr = row.Scan(&profile.ID, &profile.GoogleSub, &profile.Email, &profile.Name,
			&profile.IsPremium, &profile.FreeUsed, &profile.StripeCID, &profile.CreatedAt, &profile.UpdatedAt)
	} else {
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectProfileByEmail, email)
		scanErr = row.Scan(&profile.ID, &profile.GoogleSub, &profile.Email, &profile.Name,
			&profile.IsPremium, &profile.FreeUsed, &profile.StripeCID, &profile.CreatedAt, &profile.UpdatedAt)
	}
	cancelLookup()
	if scanErr != nil {
		exitWithError(fmt.Errorf("failed to load profile: %w", scanErr))
	}

	premium := !revokeFlag
	if profile.IsPremium == premium {
		fmt.Printf("Profile %s (%s) already has is_premium=%t, nothing to do\n", profile.ID, profile.Email, premium)
		return
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()
	tag, err := runner.Exec(updateCtx, sqlinline.QSetPremiumByID, profile.ID, premium)
	if err != nil {
		exitWithError(fmt.Errorf("failed to update premium flag: %w", err))
	}
	if tag.RowsAffected() == 0 {
		exitWithError(fmt.Errorf("profile %s disappeared during update", profile.ID))
	}

	action := "granted"
	if revokeFlag {
		action = "revoked"
	}
	fmt.Printf("Premium %s for %s (%s)\n", action, profile.ID, profile.Email)
	fmt.Printf("free_analyses_used=%d stripe_customer_id=%q\n", profile.FreeUsed, profile.StripeCID)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
