// Package test starts disposable Postgres containers for store tests.
package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/tixchain/ticket-server/pkg/retry"
	"github.com/tixchain/ticket-server/pkg/retry/backoff"
)

const (
	image        = "postgres"
	imageTag     = "15-alpine"
	containerTTL = 2 * time.Minute

	containerPort = "5432/tcp"
	user          = "ledger"
	password      = "ledger-password"
	dbname        = "ledger_test"

	readyAttempts = 60
	readyInterval = 500 * time.Millisecond
)

// StartPostgresDB runs a Postgres container and returns a connection to it once
// it accepts queries. closeFunc closes the connection and removes the
// container.
func StartPostgresDB(pool *dockertest.Pool) (db *sql.DB, closeFunc func(), err error) {
	log := logrus.StandardLogger().WithField("type", "database/postgres/test")
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        imageTag,
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbname,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, closeFunc, errors.Wrap(err, "failed to start postgres container")
	}

	// Expire never returns an error. It bounds the container's lifetime when
	// the test binary dies before closeFunc runs.
	_ = resource.Expire(uint(containerTTL.Seconds()))

	purge := func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Warn("failed to purge postgres container")
		}
	}

	databaseUrl := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user,
		password,
		resource.GetHostPort(containerPort),
		dbname,
	)

	_, err = retry.Retry(
		func() error {
			db, err = sql.Open("pgx", databaseUrl)
			if err != nil {
				return err
			}

			if err := db.Ping(); err != nil {
				db.Close()
				return err
			}
			return nil
		},
		retry.Limit(readyAttempts),
		retry.Backoff(backoff.Constant(readyInterval), readyInterval),
	)
	if err != nil {
		purge()
		return nil, closeFunc, errors.Wrap(err, "timed out waiting for postgres container to become available")
	}

	closeFunc = func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("failed to close postgres connection")
		}
		purge()
	}
	return db, closeFunc, nil
}
