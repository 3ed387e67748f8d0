// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

//go:build integration

package account_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/connectix/connectix/internal/account"
)

const password = "Str0ng!Passw0rd"

func errCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

var _ = Describe("Account flows", func() {
	var (
		ctx   context.Context
		mail  *outbox
		svc   *account.Service
		email string
	)

	BeforeEach(func() {
		ctx = context.Background()
		mail = &outbox{}
		svc = newService(mail)
		email = "user-" + strings.ToLower(ulid.Make().String()) + "@example.com"
	})

	register := func() ulid.ULID {
		id, err := svc.Register(ctx, account.RegisterInput{Name: "Ada", Email: email, Password: password})
		Expect(err).NotTo(HaveOccurred())
		return id
	}

	completeRegistration := func() ulid.ULID {
		id := register()
		v, err := svc.VerifyEmailCode(ctx, email, mail.verificationCode())
		Expect(err).NotTo(HaveOccurred())
		Expect(v.AccountID).To(Equal(id))

		_, err = svc.UpdateProfile(ctx, account.ProfileInput{
			AccountID: id.String(),
			Username:  "ada-" + strings.ToLower(id.String()),
			Gender:    "female",
			State:     "Lagos",
		})
		Expect(err).NotTo(HaveOccurred())

		summary, err := svc.CompleteRegistration(ctx, account.CompleteInput{
			AccountID:  id.String(),
			StageName:  "Ada Lovelace",
			MusicStyle: "jazz",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.ID).To(Equal(id.String()))
		return id
	}

	Describe("registration", func() {
		It("walks an account from sign-up to login", func() {
			id := completeRegistration()

			res, err := svc.Login(ctx, strings.ToUpper(email), password)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.TwoFARequired).To(BeFalse())
			Expect(res.Token).NotTo(BeEmpty())

			subject, err := svc.Authenticate(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(subject).To(Equal(id))
		})

		It("rejects a second registration with the same email", func() {
			register()

			_, err := svc.Register(ctx, account.RegisterInput{Name: "Ada", Email: email, Password: password})
			Expect(errCode(err)).To(Equal(account.CodeDuplicateIdentity))
		})

		It("refuses login before the email is verified", func() {
			register()

			_, err := svc.Login(ctx, email, password)
			Expect(errCode(err)).To(Equal(account.CodeEmailNotVerified))
		})

		It("rejects a wrong verification code", func() {
			register()
			code := mail.verificationCode()
			wrong := "0000"
			if code == wrong {
				wrong = "1111"
			}

			_, err := svc.VerifyEmailCode(ctx, email, wrong)
			Expect(errCode(err)).To(Equal(account.CodeInvalidCode))
		})
	})

	Describe("password recovery", func() {
		It("resets the password through the mailed link", func() {
			id := completeRegistration()

			link, err := svc.ForgotPassword(ctx, email)
			Expect(err).NotTo(HaveOccurred())
			Expect(mail.last().Template).To(Equal(account.TemplateForgetPassword))
			Expect(mail.last().Data).To(HaveKeyWithValue("resetLink", link))

			raw := link[strings.LastIndex(link, "/")+1:]
			Expect(svc.CheckResetLink(ctx, id.String(), raw)).To(Succeed())
			Expect(svc.ResetPassword(ctx, id.String(), raw, "N3w!Password")).To(Succeed())

			_, err = svc.Login(ctx, email, password)
			Expect(errCode(err)).To(Equal(account.CodeInvalidPassword))

			_, err = svc.Login(ctx, email, "N3w!Password")
			Expect(err).NotTo(HaveOccurred())
		})

		It("changes the password for a signed-in account", func() {
			completeRegistration()
			res, err := svc.Login(ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			err = svc.ChangePassword(ctx, res.Token, "not-it", "N3w!Password")
			Expect(errCode(err)).To(Equal(account.CodeIncorrectPassword))

			Expect(svc.ChangePassword(ctx, res.Token, password, "N3w!Password")).To(Succeed())
			_, err = svc.Login(ctx, email, "N3w!Password")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("two-factor authentication", func() {
		It("requires a TOTP code after enrollment", func() {
			id := completeRegistration()

			enrollment, err := svc.EnableTwoFA(ctx, email)
			Expect(err).NotTo(HaveOccurred())
			Expect(enrollment.QRCode).To(HavePrefix("data:image/png;base64,"))

			currentCode := func() string {
				code, err := totpService.CodeAt(enrollment.Secret, time.Now())
				Expect(err).NotTo(HaveOccurred())
				return code
			}
			Expect(svc.VerifyTwoFA(ctx, email, currentCode())).To(Succeed())

			res, err := svc.Login(ctx, email, password)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.TwoFARequired).To(BeTrue())
			Expect(res.Token).To(BeEmpty())

			res, err = svc.VerifyTwoFALogin(ctx, email, currentCode())
			Expect(err).NotTo(HaveOccurred())
			subject, err := svc.Authenticate(ctx, res.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(subject).To(Equal(id))
		})
	})
})
