package container

import (
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avinay/ntc-blueprint/config"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	store       repo.KeyValueStore
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	deviceTokens *helpers.DeviceTokenManager

	rabbitPub *helpers.RabbitPublisher
)

func SetConfig(c *config.Config)                    { cfg = c }
func GetConfig() *config.Config                     { return cfg }
func SetLogger(l *logrus.Logger)                    { logger = l }
func GetLogger() *logrus.Logger                     { return logger }
func SetStore(s repo.KeyValueStore)                 { store = s }
func GetStore() repo.KeyValueStore                  { return store }
func SetPGPool(p *pgxpool.Pool)                     { pgPool = p }
func GetPGPool() *pgxpool.Pool                      { return pgPool }
func SetRedis(r *redis.Client)                      { redisClient = r }
func GetRedis() *redis.Client                       { return redisClient }
func SetGCS(s *storage.Client)                      { gcsClient = s }
func GetGCS() *storage.Client                       { return gcsClient }
func SetDeviceTokens(m *helpers.DeviceTokenManager) { deviceTokens = m }
func GetDeviceTokens() *helpers.DeviceTokenManager  { return deviceTokens }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
