package postgresql

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinkando/family-task-service/pkg/logger"
)

type Option interface {
	apply(*postgreSQL)
}

type optionFunc func(*postgreSQL)

func (o optionFunc) apply(pgsql *postgreSQL) {
	o(pgsql)
}

func WithHost(host string) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.host = host
	})
}

func WithPort(port int) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.port = port
	})
}

func WithUsername(username string) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.username = username
	})
}

func WithPassword(password string) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.password = password
	})
}

func WithDBName(dbName string) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.dbName = dbName
	})
}

func WithMaxConnLifetime(d time.Duration) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.maxConnLifetime = d
	})
}

func WithMaxOpenConns(maxOpenConns int32) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.maxOpenConns = maxOpenConns
	})
}

func WithMaxIdleConns(maxIdleConns int32) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		pgsql.maxIdleConns = maxIdleConns
	})
}

type postgreSQL struct {
	host                string
	port                int
	username            string
	password            string
	dbName              string
	queryString         map[string]string
	maxOpenConns        int32
	maxConnLifetime     time.Duration
	maxIdleConns        int32
	maxIdleConnLifetime time.Duration
}

func WithQueryString(key, value string) Option {
	return optionFunc(func(pgsql *postgreSQL) {
		if pgsql.queryString == nil {
			pgsql.queryString = make(map[string]string)
		}
		pgsql.queryString[key] = value
	})
}

// url builds the connection URL. Credentials are escaped, so passwords may contain any character.
func (pgsql postgreSQL) url() *url.URL {
	host := pgsql.host
	if pgsql.port != 0 {
		host = net.JoinHostPort(pgsql.host, strconv.Itoa(pgsql.port))
	}

	query := make(url.Values, len(pgsql.queryString))
	for k, v := range pgsql.queryString {
		query.Set(k, v)
	}

	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pgsql.username, pgsql.password),
		Host:     host,
		Path:     "/" + pgsql.dbName,
		RawQuery: query.Encode(),
	}
}

func New(options ...Option) *pgxpool.Pool {
	pgsql := postgreSQL{maxConnLifetime: 15 * time.Minute, maxIdleConnLifetime: 15 * time.Minute}
	for _, o := range options {
		o.apply(&pgsql)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgURL := pgsql.url()
	logger.Infof("postgresql: connecting to %s", pgURL.Redacted())

	pgCfg, err := pgxpool.ParseConfig(pgURL.String())
	if err != nil {
		logger.Fatalf("postgresql: parse config: %s", err.Error())
	}
	pgCfg.ConnConfig.Config.ConnectTimeout = 10 * time.Second
	pgCfg.MaxConnLifetime = pgsql.maxConnLifetime
	if pgsql.maxOpenConns > 0 {
		pgCfg.MaxConns = pgsql.maxOpenConns
	}
	if pgsql.maxIdleConns > pgCfg.MaxConns {
		pgsql.maxIdleConns = pgCfg.MaxConns
	}
	pgCfg.MaxConnIdleTime = pgsql.maxIdleConnLifetime
	pgCfg.MinConns = pgsql.maxIdleConns

	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		logger.Fatalf("postgresql: connect: %s", err.Error())
	}

	if err = pgPool.Ping(ctx); err != nil {
		logger.Fatalf("postgresql: ping: %s", err.Error())
	}

	logger.Infof("postgresql: connected to %s:%d/%s", pgsql.host, pgsql.port, pgsql.dbName)
	return pgPool
}

func Shutdown(pgPool *pgxpool.Pool) {
	logger.Info("postgresql: shutting down")
	pgPool.Close()
	logger.Info("postgresql: shutdown")
}
