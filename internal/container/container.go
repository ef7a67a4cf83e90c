package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons. Any of the clients may
// be nil when the matching backend is not configured.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	sessions *helpers.SessionManager

	mailgunClient *mailer.Mailgun
	rabbitPub     *helpers.RabbitPublisher
	esClient      *elasticsearch.Client
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}
func SetPGPool(p *pgxpool.Pool) { pgPool = p }
func GetPGPool() *pgxpool.Pool  { return pgPool }
func SetRedis(r *redis.Client)  { redisClient = r }
func GetRedis() *redis.Client   { return redisClient }
func SetGCS(s *storage.Client)  { gcsClient = s }
func GetGCS() *storage.Client   { return gcsClient }

func SetSessions(m *helpers.SessionManager) { sessions = m }
func GetSessions() *helpers.SessionManager {
	if sessions != nil {
		return sessions
	}
	return helpers.DefaultSessions()
}

func SetMailgun(m *mailer.Mailgun)            { mailgunClient = m }
func GetMailgun() *mailer.Mailgun             { return mailgunClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

// Reset clears every singleton; tests use it between wiring runs
func Reset() {
	cfg, logger, pgPool, redisClient, gcsClient = nil, nil, nil, nil, nil
	sessions, mailgunClient, rabbitPub, esClient = nil, nil, nil, nil
}
