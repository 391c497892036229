// Package main is the entry point for the cms-mirror binary.
package main

// @title           cms-mirror API
// @version         1.0
// @description     Read API over content mirrored from an upstream CMS, plus sync status and admin sync triggers.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"os"

	"github.com/custodia-labs/cms-mirror/cmd/cms-mirror/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
