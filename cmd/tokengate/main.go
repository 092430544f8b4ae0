package main

import (
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"token-admission/internal/cli"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	// API responses carry USD amounts as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	cli.Execute()
}
