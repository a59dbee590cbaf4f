package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/forgo/fete/api/internal/config"
	"github.com/forgo/fete/api/pkg/jwt"
)

func main() {
	// Flags for customization
	userID := flag.String("user", "user:admin", "User record ID the token is issued for")
	exp := flag.Duration("exp", 7*24*time.Hour, "Token lifetime")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Secret and issuer come from the same environment the server reads
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	jwtService, err := jwt.NewService(jwt.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: *exp,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating JWT service: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nSet JWT_SECRET (at least 16 characters) in the environment or .env\n")
		os.Exit(1)
	}

	token, err := jwtService.Sign(*userID, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		output := map[string]any{
			"token":      token,
			"token_type": "Bearer",
			"expires_in": int(exp.Seconds()),
			"user_id":    *userID,
			"role":       "admin",
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	expTime := time.Now().Add(*exp)
	fmt.Println("Admin Token Generated")
	fmt.Println("=====================")
	fmt.Printf("User ID:  %s\n", *userID)
	fmt.Printf("Role:     admin\n")
	fmt.Printf("Expires:  %s\n", expTime.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("The user record must exist with role admin for the token to resolve.")
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' 'http://localhost:%s/api/bookings?event=event:...'\n", token[:20]+"...", cfg.Server.Port)
}
