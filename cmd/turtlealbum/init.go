package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/turtlealbum/internal/db"
	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database schema and the admin account",
	Long: `Init creates the schema and an admin account with a generated
password, which is printed once. It refuses to run against a database
that already has users.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	database, err := openDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()

	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("database %s is already initialized", cfg.Database.DSN)
	}

	password, err := createAdmin(ctx, database, cfg.Admin.Username)
	if err != nil {
		return err
	}
	printInitResult(cmd.OutOrStdout(), cfg.Database.DSN, cfg.Admin.Username, password)
	return nil
}

// openDatabase opens the database and brings the schema up to date.
func openDatabase(ctx context.Context, driver, dsn string) (*db.DB, error) {
	database, err := db.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// createAdmin creates an admin account with a generated password and
// returns the password.
func createAdmin(ctx context.Context, database *db.DB, username string) (string, error) {
	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printInitResult prints the database initialization result.
func printInitResult(w io.Writer, dsn, username, password string) {
	fmt.Fprintf(w, "Database initialized: %s\n", dsn)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
