// Command seed-accounts creates the bootstrap admin and staff accounts listed
// in a YAML file. Existing accounts are left untouched.
//
//	seed-accounts -file accounts.yaml
//
// accounts.yaml:
//
//	accounts:
//	  - email: admin@city.gov
//	    name: City Admin
//	    role: admin
//	  - email: roads@city.gov
//	    role: staff
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"reportify-backend-go/internal/config"
	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/models"
)

type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	Email    string      `yaml:"email"`
	Name     string      `yaml:"name"`
	PhotoURL string      `yaml:"photoURL"`
	Role     models.Role `yaml:"role"`
}

type seedResult struct {
	Created int
	Skipped int
}

func main() {
	file := flag.String("file", "accounts.yaml", "YAML file listing the accounts to create")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer logger.Sync()

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("Failed to open seed file", zap.String("file", *file), zap.Error(err))
	}
	accounts, err := parseSeedFile(f)
	f.Close()
	if err != nil {
		logger.Fatal("Failed to parse seed file", zap.String("file", *file), zap.Error(err))
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load application configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.InitFirestore(ctx, appConfig, logger); err != nil {
		logger.Fatal("Failed to initialize Firestore", zap.Error(err))
	}
	defer db.CloseFirestore()

	res, err := seedAccounts(ctx, db.NewFirestoreUserRepository(db.GetFirestoreClient()), accounts, logger)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeding finished", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
}

func parseSeedFile(r io.Reader) ([]seedAccount, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]bool, len(sf.Accounts))
	for i, a := range sf.Accounts {
		email := db.NormalizeEmail(a.Email)
		if email == "" {
			return nil, fmt.Errorf("account %d: email is required", i)
		}
		if !a.Role.Valid() {
			return nil, fmt.Errorf("account %s: invalid role %q", email, a.Role)
		}
		if seen[email] {
			return nil, fmt.Errorf("account %s: listed twice", email)
		}
		seen[email] = true
		sf.Accounts[i].Email = email
	}
	return sf.Accounts, nil
}

func seedAccounts(ctx context.Context, repo db.UserRepository, accounts []seedAccount, logger *zap.Logger) (seedResult, error) {
	var res seedResult
	now := time.Now().UTC()
	for _, a := range accounts {
		err := repo.Create(ctx, &models.User{
			Email:     a.Email,
			Name:      a.Name,
			PhotoURL:  a.PhotoURL,
			Role:      a.Role,
			CreatedAt: now,
			UpdatedAt: now,
		})
		switch {
		case err == nil:
			res.Created++
			logger.Info("Account created", zap.String("email", a.Email), zap.String("role", string(a.Role)))
		case errors.Is(err, db.ErrAlreadyExists):
			res.Skipped++
			logger.Info("Account exists, skipped", zap.String("email", a.Email))
		default:
			return res, fmt.Errorf("create %s: %w", a.Email, err)
		}
	}
	return res, nil
}
