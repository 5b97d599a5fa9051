package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/momentum/internal/models"
)

// HoldingsFile is the YAML layout accepted by the portfolio and watchlist commands:
//
//	holdings:
//	  - {ticker: AAPL, shares: 10, cost_basis: 120.5}
type HoldingsFile struct {
	Holdings []models.Holding `yaml:"holdings"`
}

// LoadHoldings reads a holdings file. Validation happens in the services.
func LoadHoldings(path string) ([]models.Holding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	return ParseHoldings(data)
}

// ParseHoldings decodes holdings YAML. Unknown fields are rejected.
func ParseHoldings(data []byte) ([]models.Holding, error) {
	var f HoldingsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse holdings: %w", err)
	}
	return f.Holdings, nil
}
