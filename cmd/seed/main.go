package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"sportshub-payments/internal/config"
	"sportshub-payments/internal/domain/model"
	"sportshub-payments/internal/domain/ports/repository"
	pg "sportshub-payments/internal/infra/db/postgres"
	red "sportshub-payments/internal/infra/redis"
	"sportshub-payments/internal/infra/web"
)

// seed loads a predictable set of users and ad campaigns for manual testing
// and prints a bearer token for each user.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "truncate payment tables and drop cached stats first")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if *reset {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()

		log.Println("[reset] truncating tables...")
		if _, err := pool.Exec(ctx, `TRUNCATE patron_donations, payments, ad_campaigns, users RESTART IDENTITY CASCADE;`); err != nil {
			log.Fatalf("truncate: %v", err)
		}
		n, err := redisClient.DeletePrefix(ctx, "stats:")
		if err != nil {
			log.Fatalf("flush stats cache: %v", err)
		}
		log.Printf("[reset] dropped %d cached stats keys", n)
	}

	userRepo := pg.NewPostgresUserRepo(pool)
	campaignRepo := pg.NewAdCampaignRepo(pool)
	tm := pg.NewTxManager(pool)

	seedUsers := []struct {
		id, email, name string
		role            model.Role
	}{
		{"admin-1", "admin@sportshub.test", "Club Admin", model.RoleAdmin},
		{"adv-1", "ads@acme.test", "Acme Sports Drinks", model.RoleAdvertiser},
		{"patron-1", "bola@example.com", "Bola Patron", model.RolePatron},
	}
	seedCampaigns := []model.AdCampaign{
		{ID: "42", OwnerID: "adv-1", Title: "Derby day pitch-side banner", Status: model.CampaignStatusPendingPayment},
		{ID: "43", OwnerID: "adv-1", Title: "Season opener jersey sleeve", Status: model.CampaignStatusDraft},
	}

	var users []*model.User
	err = tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, s := range seedUsers {
			u, err := model.NewUser(s.id, s.email, s.name, s.role)
			if err != nil {
				return fmt.Errorf("user %s: %w", s.id, err)
			}
			if err := userRepo.Save(ctx, tx, u); err != nil {
				return fmt.Errorf("save user %s: %w", s.id, err)
			}
			users = append(users, u)
		}
		for i := range seedCampaigns {
			if err := campaignRepo.Save(ctx, tx, &seedCampaigns[i]); err != nil {
				return fmt.Errorf("save campaign %s: %w", seedCampaigns[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	auth := web.NewAuthManager(cfg.Auth.HMACSecret, false, "", cfg.Auth.TokenTTL)
	for _, u := range users {
		tok, err := auth.Issue(u)
		if err != nil {
			log.Fatalf("token for %s: %v", u.ID, err)
		}
		fmt.Printf("seeded user %-9s role=%-10s token=%s\n", u.ID, u.Role, tok)
	}
	for _, c := range seedCampaigns {
		fmt.Printf("seeded campaign %s (%s) status=%s\n", c.ID, c.Title, c.Status)
	}
	fmt.Println("Seeding complete.")
}
