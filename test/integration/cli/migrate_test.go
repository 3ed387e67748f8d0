// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

//go:build integration

package cli_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Migrate Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetDatabase(ctx)
	})

	It("creates the accounts table", func() {
		output, err := connectix(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)
		Expect(output).To(ContainSubstring("Migrations completed successfully"))

		var exists bool
		err = pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'accounts')`,
		).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("is idempotent", func() {
		output, err := connectix(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "first migrate failed: %s", output)

		output, err = connectix(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "second migrate failed: %s", output)
		Expect(output).To(ContainSubstring("No pending migrations"))
	})

	It("reports status before and after", func() {
		output, err := connectix(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "status failed: %s", output)
		Expect(output).To(ContainSubstring("Schema version: 0"))
		Expect(output).To(ContainSubstring("Pending: 000001_create_accounts"))

		_, err = connectix(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred())

		output, err = connectix(ctx, "migrate", "status")
		Expect(err).NotTo(HaveOccurred(), "status failed: %s", output)
		Expect(output).To(ContainSubstring("Applied: 000001_create_accounts"))
		Expect(output).To(ContainSubstring("Pending: none"))
	})

	It("rolls back with down", func() {
		_, err := connectix(ctx, "migrate", "up")
		Expect(err).NotTo(HaveOccurred())

		output, err := connectix(ctx, "migrate", "down")
		Expect(err).NotTo(HaveOccurred(), "down failed: %s", output)
		Expect(output).To(ContainSubstring("Schema version: 0"))
	})
})
