package web

//go:generate go run ./internal/assetgen --out static
