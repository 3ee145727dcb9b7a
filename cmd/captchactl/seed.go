package main

import (
	"context"

	"github.com/spf13/cobra"

	"dental-captcha/internal/app"
	"dental-captcha/internal/bootstrap"
)

var sampleQuestions = []app.QuestionImport{
	{Text: "Select all images showing dental cavities", Type: "multiple_choice"},
	{Text: "Select all images showing healthy teeth", Type: "multiple_choice"},
	{Text: "Select all X-ray images", Type: "multiple_choice"},
	{Text: "Select all images showing dental implants", Type: "multiple_choice"},
}

type seedUser struct {
	username string
	email    string
	password string
	isAdmin  bool
}

func newSeedCmd(e *env) *cobra.Command {
	var adminPassword, testPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin and test users and the sample questions",
		Long: `seed is idempotent: users that already exist are left alone and sample
questions are only inserted into an empty question table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := bootstrap.Migrate(e.db); err != nil {
				return err
			}

			users := []seedUser{
				{username: "admin", email: "admin@captcha.local", password: adminPassword, isAdmin: true},
				{username: "testuser", email: "test@captcha.local", password: testPassword},
			}
			for _, u := range users {
				created, err := ensureUser(ctx, e, u)
				if err != nil {
					return err
				}
				if created {
					cmd.Printf("Created user %s (%s)\n", u.username, u.email)
				} else {
					cmd.Printf("User %s already exists\n", u.username)
				}
			}

			count, err := e.store.Questions.Count(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				cmd.Printf("%d questions already exist\n", count)
			} else {
				result, err := e.services.Catalog.ImportQuestions(ctx, sampleQuestions)
				if err != nil {
					return err
				}
				cmd.Printf("Created %d sample questions\n", result.Imported)
			}

			images, err := e.store.Images.ListIDs(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Database has %d images\n", len(images))
			return nil
		},
	}

	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin123", "password for the admin user")
	cmd.Flags().StringVar(&testPassword, "test-password", "test1234", "password for the test user")
	return cmd
}

func ensureUser(ctx context.Context, e *env, u seedUser) (bool, error) {
	existing, err := e.store.Users.GetByEmail(ctx, u.email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	byName, err := e.store.Users.GetByUsername(ctx, u.username)
	if err != nil {
		return false, err
	}
	if byName != nil {
		return false, nil
	}
	if _, err := e.services.Auth.CreateUser(ctx, u.username, u.email, u.password, u.isAdmin); err != nil {
		return false, err
	}
	return true, nil
}
