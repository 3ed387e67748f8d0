// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/connectix/connectix/internal/store"
)

var _ = Describe("Store against PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("connectix_test"),
			postgres.WithUsername("connectix"),
			postgres.WithPassword("connectix"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Connect", func() {
		It("returns a ready pool", func() {
			pool, err := store.Connect(ctx, connStr, store.ConnectOptions{MaxConns: 2})
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()
			Expect(pool.Ping(ctx)).To(Succeed())
		})

		It("gives up on an unreachable server", func() {
			_, err := store.Connect(ctx, "postgres://nobody:x@127.0.0.1:1/none?connect_timeout=1",
				store.ConnectOptions{Attempts: 2, Backoff: 10 * time.Millisecond})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Migrator", func() {
		It("runs the full up, step and down cycle", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer migrator.Close()

			version, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())
			Expect(dirty).To(BeFalse())

			Expect(migrator.Up()).To(Succeed())
			latest, dirty, err := migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(BeNumerically(">", 0))
			Expect(dirty).To(BeFalse())

			pending, err := migrator.PendingMigrations()
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())

			Expect(migrator.Steps(-1)).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(Equal(latest - 1))

			Expect(migrator.Steps(1)).To(Succeed())
			Expect(migrator.Down()).To(Succeed())
			version, _, err = migrator.Version()
			Expect(err).NotTo(HaveOccurred())
			Expect(version).To(BeZero())

			Expect(migrator.Up()).To(Succeed())
			Expect(migrator.Force(int(latest))).To(Succeed())
		})

		It("enforces case-insensitive email uniqueness", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			Expect(migrator.Up()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())

			pool, err := store.Connect(ctx, connStr, store.ConnectOptions{})
			Expect(err).NotTo(HaveOccurred())
			defer pool.Close()

			_, err = pool.Exec(ctx, `INSERT INTO accounts (id, email, name, password_hash) VALUES ('a', 'x@y.com', 'X', 'h')`)
			Expect(err).NotTo(HaveOccurred())
			_, err = pool.Exec(ctx, `INSERT INTO accounts (id, email, name, password_hash) VALUES ('b', 'X@Y.com', 'X', 'h')`)
			Expect(err).To(HaveOccurred())
			_, err = pool.Exec(ctx, `DELETE FROM accounts`)
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
