// Command issue_token prints a signed API token for the given subject.
package main

import (
	"flag"
	"fmt"
	"os"

	"quadra_financeiro/internal/config"
	"quadra_financeiro/internal/transport/auth"
)

func main() {
	subject := flag.String("sub", "", "token subject, recorded as the actor of every change")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_TTL)")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if settings.Auth.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(2)
	}
	if *ttl <= 0 {
		*ttl = settings.Auth.TTL
	}

	token, err := auth.NewTokens(settings.Auth.Secret, settings.Auth.Issuer).Issue(*subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
