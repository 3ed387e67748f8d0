// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/connectix/connectix/internal/account"
	"github.com/connectix/connectix/internal/account/postgres"
)

var _ = Describe("Repository", func() {
	var (
		ctx  context.Context
		repo *postgres.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewRepository(testPool)
	})

	AfterEach(func() {
		_, err := testPool.Exec(ctx, `DELETE FROM accounts`)
		Expect(err).NotTo(HaveOccurred())
	})

	newAccount := func(email string) *account.Account {
		acc, err := account.NewAccount("Ada", email, "hash", "4821")
		Expect(err).NotTo(HaveOccurred())
		return acc
	}

	It("round-trips every field", func() {
		acc := newAccount("ada@example.com")
		Expect(repo.Create(ctx, acc)).To(Succeed())

		Expect(acc.MarkVerified()).To(Succeed())
		Expect(acc.Advance(account.Step3)).To(Succeed())
		acc.Profile = account.Profile{Username: "ada", Gender: "f", State: "Lagos", StageName: "AL", MusicStyle: "jazz"}
		acc.SetTwoFASecret("JBSWY3DPEHPK3PXP")
		Expect(repo.Update(ctx, acc)).To(Succeed())

		got, err := repo.GetByID(ctx, acc.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Verified).To(BeTrue())
		Expect(got.VerificationCode).To(BeNil())
		Expect(got.Step).To(Equal(account.Step3))
		Expect(got.Profile).To(Equal(acc.Profile))
		Expect(got.HasTwoFA()).To(BeTrue())
	})

	It("looks up email case-insensitively", func() {
		acc := newAccount("ada@example.com")
		Expect(repo.Create(ctx, acc)).To(Succeed())

		got, err := repo.GetByEmail(ctx, "ADA@Example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(acc.ID))
	})

	It("reports missing accounts as not found", func() {
		_, err := repo.GetByID(ctx, ulid.Make())
		Expect(errors.Is(err, account.ErrNotFound)).To(BeTrue())

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		Expect(errors.Is(err, account.ErrNotFound)).To(BeTrue())

		err = repo.Update(ctx, newAccount("ghost@example.com"))
		Expect(errors.Is(err, account.ErrNotFound)).To(BeTrue())
	})

	It("lets exactly one concurrent create win per email", func() {
		const racers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins, dup int
		)
		for range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				err := repo.Create(ctx, newAccount("race@example.com"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, account.ErrDuplicateEmail):
					dup++
				default:
					Fail("unexpected error: " + err.Error())
				}
			}()
		}
		wg.Wait()
		Expect(wins).To(Equal(1))
		Expect(dup).To(Equal(racers - 1))
	})
})
