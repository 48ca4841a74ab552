package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"parking-violation-monitor/be/config"
	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/logger"
	"parking-violation-monitor/be/models"
	"parking-violation-monitor/be/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func command() *cobra.Command {
	var email, password, name, role string

	cmd := &cobra.Command{
		Use:   "create_operator",
		Short: "Create an operator account, or reset its password if it exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg := config.Load()
			log := logger.New(cfg.Server)
			defer func() { _ = log.Sync() }()

			db, err := database.Initialize(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			created, err := upsertOperator(cmd.Context(), database.NewStore(db), email, password, name, role)
			if err != nil {
				return err
			}

			if created {
				log.Info("operator created", zap.String("email", email), zap.String("role", role))
			} else {
				log.Info("operator password reset", zap.String("email", email))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	cmd.Flags().StringVar(&name, "name", "Operator", "display name")
	cmd.Flags().StringVar(&role, "role", "operator", "operator role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// upsertOperator reports whether a new account was created.
func upsertOperator(ctx context.Context, store *database.Store, email, password, name, role string) (bool, error) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	operator, err := store.FindOperatorByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		operator = &models.Operator{Email: email, Name: name, Role: role, Password: hashedPassword}
		return true, store.SaveOperator(ctx, operator)
	case err != nil:
		return false, err
	}

	operator.Password = hashedPassword
	return false, store.SaveOperator(ctx, operator)
}
