package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/db"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// UserData represents the structure of users in the JSON file
type UserData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// JSONData represents the structure of the JSON files
type JSONData struct {
	Users []UserData `json:"users"`
}

func main() {
	usersFile := flag.String("users", "data/initial-users.json", "path to the users JSON file")
	flag.Parse()

	logger.Initialize()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	database, err := db.Connect(cfg.DSN(), false)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close(database)

	// Run migrations first
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}

	created, err := seedUsers(context.Background(), storage.NewGormStore(database), *usersFile)
	if err != nil {
		logger.Fatal("Error seeding users", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Database seeding completed", map[string]interface{}{"users_created": created})
}

func parseRole(s string) (models.UserRole, bool) {
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(s)))
	return role, role.Valid()
}

func seedUsers(ctx context.Context, store storage.Store, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read users file: %w", err)
	}

	var jsonData JSONData
	if err := json.Unmarshal(raw, &jsonData); err != nil {
		return 0, fmt.Errorf("parse users file: %w", err)
	}

	created := 0
	for _, userData := range jsonData.Users {
		log := logger.WithContext(map[string]interface{}{"email": userData.Email})

		role, ok := parseRole(userData.Role)
		if !ok {
			log.WithField("role", userData.Role).Warn("Unknown role, defaulting to USER")
			role = models.RoleUser
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(userData.Password), bcrypt.DefaultCost)
		if err != nil {
			log.WithError(err).Error("Error hashing password")
			continue
		}

		user := &models.User{
			Email:    strings.ToLower(userData.Email),
			Password: string(hashedPassword),
			Name:     userData.Name,
			Role:     role,
			IsActive: true,
		}
		if err := store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				log.Info("User already exists")
				continue
			}
			log.WithError(err).Error("Error creating user")
			continue
		}
		log.WithField("role", user.Role).Info("Created user")
		created++
	}
	return created, nil
}
