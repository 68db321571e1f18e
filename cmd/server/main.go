package main

import (
	"os"

	"codeberg.org/federate/server/internal/logger"
)

// @title Federate API
// @version 1.0
// @description OAuth federation and identity resolution
// @description
// @description Features:
// @description - Federated login through ten OAuth providers
// @description - Merging provider identities into one local account by email
// @description - Linking and unlinking providers on a signed-in account
// @description - Password login and signup

// @contact.name API Support
// @contact.url https://codeberg.org/federate/server

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session token for authenticated requests. Format: Bearer {token}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
