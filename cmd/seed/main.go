package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/avinay/ntc-blueprint/config"
	"github.com/avinay/ntc-blueprint/internal/application"
	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/internal/infrastructure"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
)

var demoContacts = []entity.Profile{
	{Name: "Meera Iyer", Role: "Head of Partnerships", Company: "Northwind", Phone: "+91 98450 11223", Email: "meera@northwind.io"},
	{Name: "Daniel Okafor", Role: "Staff Engineer", Company: "Globex", Phone: "+44 20 7946 0958", Email: "daniel.okafor@globex.com"},
	{Name: "Lena Vogel", Role: "Product Designer", Company: "Initech", Phone: "+49 30 1234 5678", Email: "lena@initech.de"},
	{Name: "Kenji Sato", Role: "CTO", Company: "northwind", Phone: "+81 3 1234 5678", Email: "kenji@northwind.io"},
}

// Seeds a device namespace with a demo profile and scanned contacts, going
// through the same encode/scan path a phone would.
func main() {
	device := flag.String("device", "demo-device", "device namespace to seed")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := repo.WithNamespace(context.Background(), *device)

	var rdb *redis.Client
	if cfg.StorageDriver == "redis" {
		rdb = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
	}
	store, pool, err := infrastructure.OpenStore(ctx, cfg, rdb, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	if cfg.StorageDriver == "" || cfg.StorageDriver == "memory" {
		log.Println("STORAGE_DRIVER=memory; seeded data will not outlive this process")
	}

	svc := application.NewService(store, nil, "", logger, false)

	me, created, err := svc.UpsertMyProfile(ctx, application.ProfileInput{
		Name:    "Asha Rao",
		Role:    "Product Manager",
		Company: "Acme",
		Phone:   "+91 12345 67890",
		Email:   "asha@acme.com",
	})
	if err != nil {
		log.Fatalf("failed to seed profile: %v", err)
	}
	fmt.Printf("seeded profile: id=%s name=%s created=%v\n", me.ID, me.Name, created)

	for i, c := range demoContacts {
		c.ID = svc.NewID()
		c.CreatedAt = entity.FormatTimestamp(time.Now().AddDate(0, 0, -30))
		payload, err := exchange.Encode(c)
		if err != nil {
			log.Fatalf("failed to encode %s: %v", c.Name, err)
		}
		// spread scans over the last two weeks so stats show a mix
		svc.Now = func() time.Time { return time.Now().AddDate(0, 0, -4*i) }
		if _, err := svc.ScanContact(ctx, payload); err != nil {
			if errors.Is(err, application.ErrDuplicateContact) {
				fmt.Printf("contact exists: %s\n", c.Email)
				continue
			}
			log.Fatalf("failed to seed contact %s: %v", c.Email, err)
		}
		fmt.Printf("seeded contact: %s <%s>\n", c.Name, c.Email)
	}

	svc.Now = time.Now

	stats := svc.GetNetworkingStats(ctx)
	fmt.Printf("device=%s contacts=%d recent=%d companies=%d\n", *device, stats.TotalContacts, stats.RecentScans, stats.CompaniesRepresented)
}
