// Command seed writes demo profiles into the configured storage medium so the
// record API has something to show. Profiles go through the record store, so
// the KYC mirror on each user stays consistent with the KYC collection.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"blocknexus/internal/kyc"
	"blocknexus/internal/medium"
	"blocknexus/internal/platform/config"
	"blocknexus/internal/platform/logger"
)

type demoProfile struct {
	wallet  string
	profile map[string]any
	kyc     map[string]any
}

var demoProfiles = []demoProfile{
	{
		wallet:  "0x1111111111111111111111111111111111111111",
		profile: map[string]any{"username": "ada", "email": "ada@example.com"},
		kyc:     map[string]any{"fullName": "Ada Lovelace", "country": "GB", "documentType": "passport"},
	},
	{
		wallet:  "0x2222222222222222222222222222222222222222",
		profile: map[string]any{"username": "grace", "email": "grace@example.com"},
	},
}

func main() {
	withKYC := flag.Bool("with-kyc", true, "also submit KYC records for profiles that have them")
	flag.Parse()

	log := logger.New()
	if err := run(context.Background(), log, *withKYC); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, withKYC bool) error {
	config.LoadDotEnv(log)
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	m, closeMedium, err := medium.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeMedium() }()

	return seed(ctx, kyc.New(m, kyc.WithLogger(log)), withKYC)
}

func seed(ctx context.Context, store *kyc.Store, withKYC bool) error {
	for _, p := range demoProfiles {
		if _, err := store.UpsertUser(ctx, p.wallet, p.profile); err != nil {
			return err
		}
		if withKYC && p.kyc != nil {
			if _, err := store.SaveKYC(ctx, p.wallet, p.kyc); err != nil {
				return err
			}
		}
	}
	return nil
}
