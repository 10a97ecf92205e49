package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"subpay/internal/database"
	"subpay/internal/domain"
	jwtsvc "subpay/internal/pkg/jwt"
	"subpay/internal/repository"
)

// Seeds demo users for local development and prints a bearer token for each
// so the payment endpoints can be exercised without a login flow.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "subpay.db"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	users := repository.NewUserRepository(db)
	j := jwtsvc.New(secret, 24*time.Hour)
	ctx := context.Background()

	demo := []struct {
		email, name, password string
		role                  domain.UserRole
	}{
		{"admin@subpay.dev", "Admin", "admin123", domain.RoleAdmin},
		{"alice@subpay.dev", "Alice", "alice123", domain.RoleUser},
		{"bob@subpay.dev", "Bob", "bob123", domain.RoleUser},
	}

	for _, d := range demo {
		existing, err := users.GetByEmail(ctx, d.email)
		if err == nil {
			printToken(j, existing)
			continue
		}

		u := &domain.User{Email: d.email, Name: d.name, Role: d.role}
		if err := u.SetPassword(d.password); err != nil {
			log.Fatal("hash password failed:", err)
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatal("create user failed:", err)
		}
		log.Printf("created user email=%s password=%s", d.email, d.password)
		printToken(j, u)
	}
}

func printToken(j *jwtsvc.Service, u *domain.User) {
	token, err := j.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		log.Fatal("generate token failed:", err)
	}
	log.Printf("token user_id=%d email=%s bearer=%s", u.ID, u.Email, token)
}
