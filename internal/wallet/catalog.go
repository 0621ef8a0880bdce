package wallet

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Package is one purchasable token tier.
type Package struct {
	ID     string
	Name   string
	Amount int64
	Bonus  int64
	Price  decimal.Decimal
}

// Tokens is what a purchase credits.
func (p Package) Tokens() int64 { return p.Amount + p.Bonus }

type Catalog struct {
	packages []Package
	byID     map[string]Package
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Package{
		{ID: "starter", Name: "Starter", Amount: 100, Bonus: 0, Price: decimal.RequireFromString("4.99")},
		{ID: "popular", Name: "Popular", Amount: 500, Bonus: 50, Price: decimal.RequireFromString("19.99")},
		{ID: "pro", Name: "Pro", Amount: 1000, Bonus: 150, Price: decimal.RequireFromString("34.99")},
		{ID: "whale", Name: "Whale", Amount: 5000, Bonus: 1000, Price: decimal.RequireFromString("149.99")},
	})
	if err != nil {
		panic("wallet: default catalog invalid: " + err.Error())
	}

	return c
}

// NewCatalog validates pkgs and keeps their order.
func NewCatalog(pkgs []Package) (*Catalog, error) {
	if len(pkgs) == 0 {
		return nil, errors.New("catalog is empty")
	}

	c := &Catalog{byID: make(map[string]Package, len(pkgs))}

	for _, p := range pkgs {
		switch {
		case p.ID == "":
			return nil, errors.New("package without id")
		case p.Amount <= 0:
			return nil, fmt.Errorf("package %s: amount must be > 0", p.ID)
		case p.Bonus < 0:
			return nil, fmt.Errorf("package %s: bonus must be >= 0", p.ID)
		case !p.Price.IsPositive():
			return nil, fmt.Errorf("package %s: price must be > 0", p.ID)
		}

		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate package id %s", p.ID)
		}

		if p.Name == "" {
			p.Name = p.ID
		}

		c.byID[p.ID] = p
		c.packages = append(c.packages, p)
	}

	return c, nil
}

func (c *Catalog) Lookup(id string) (Package, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Packages() []Package {
	out := make([]Package, len(c.packages))
	copy(out, c.packages)

	return out
}

type catalogFile struct {
	Packages []struct {
		ID     string `yaml:"id"`
		Name   string `yaml:"name"`
		Amount int64  `yaml:"amount"`
		Bonus  int64  `yaml:"bonus"`
		Price  string `yaml:"price"`
	} `yaml:"packages"`
}

// LoadCatalog reads a YAML override of the package list. Prices are kept as
// strings in the file so they are never rounded through float64.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile

	err := yaml.Unmarshal(raw, &f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	pkgs := make([]Package, 0, len(f.Packages))

	for _, p := range f.Packages {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("package %s: invalid price %q: %w", p.ID, p.Price, err)
		}

		pkgs = append(pkgs, Package{ID: p.ID, Name: p.Name, Amount: p.Amount, Bonus: p.Bonus, Price: price})
	}

	return NewCatalog(pkgs)
}
