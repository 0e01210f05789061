// Package main provides admin account utilities for the blog CMS.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"blogcms/internal/bootstrap"
	"blogcms/internal/config"
	"blogcms/internal/models"
	"blogcms/internal/repository"
	"blogcms/internal/service"

	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin create <username> <email>   - Create an admin account")
		fmt.Println("  go run ./cmd/admin reset-password <username>   - Replace an account password")
		fmt.Println("  go run ./cmd/admin list                        - List all accounts")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = rt.Close() }()

	accounts := service.NewAuthService(repository.NewAccountRepository(rt.DB), nil, nil)

	switch command := os.Args[1]; command {
	case "create":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run ./cmd/admin create <username> <email>")
			os.Exit(1)
		}
		createAccount(ctx, accounts, os.Args[2], os.Args[3])

	case "reset-password":
		if len(os.Args) < 3 {
			fmt.Println("Usage: go run ./cmd/admin reset-password <username>")
			os.Exit(1)
		}
		resetPassword(ctx, accounts, os.Args[2])

	case "list":
		listAccounts(ctx, accounts)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

// readPassword prompts twice without echo. When stdin is not a terminal the
// password is read from the first line of input.
func readPassword() string {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("Failed to read password: %v", err)
		}
		return strings.TrimRight(line, "\r\n")
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	if string(first) != string(second) {
		fmt.Println("Passwords do not match")
		os.Exit(1)
	}
	return string(first)
}

func explain(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func createAccount(ctx context.Context, accounts *service.AuthService, username, email string) {
	account, err := accounts.CreateAccount(ctx, username, readPassword(), email)
	if err != nil {
		fmt.Printf("Failed to create account: %s\n", explain(err))
		os.Exit(1)
	}
	fmt.Printf("✅ Created %s (ID: %d)\n", account.Username, account.ID)
}

func resetPassword(ctx context.Context, accounts *service.AuthService, username string) {
	if err := accounts.ResetPassword(ctx, username, readPassword()); err != nil {
		fmt.Printf("Failed to reset password: %s\n", explain(err))
		os.Exit(1)
	}
	fmt.Printf("✅ Password updated for %s\n", username)
}

func listAccounts(ctx context.Context, accounts *service.AuthService) {
	list, err := accounts.ListAccounts(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch accounts: %v", err)
	}

	if len(list) == 0 {
		fmt.Println("No accounts found")
		return
	}

	fmt.Println("\n📋 Accounts:")
	fmt.Println("─────────────────────────────────────")
	for _, a := range list {
		fmt.Printf("ID: %d | Username: %s | Email: %s | Role: %s\n", a.ID, a.Username, a.Email, a.Role)
	}
	fmt.Println("─────────────────────────────────────")
}
