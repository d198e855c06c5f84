// Package model holds the job request read from job files.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Request is everything needed to render one narrated market video.
type Request struct {
	Title        string                `yaml:"title" json:"title"`
	Script       string                `yaml:"script" json:"script"`
	Sentiment    string                `yaml:"sentiment" json:"sentiment"`
	Prices       []PriceSnapshot       `yaml:"prices" json:"prices"`
	Collectibles []CollectibleSnapshot `yaml:"collectibles" json:"collectibles"`
	Topics       []Topic               `yaml:"topics" json:"topics"`
}

type PriceSnapshot struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Name      string  `yaml:"name" json:"name"`
	Price     float64 `yaml:"price" json:"price"`
	Change24h float64 `yaml:"change_24h" json:"change_24h"`
}

type CollectibleSnapshot struct {
	Name       string  `yaml:"name" json:"name"`
	FloorPrice float64 `yaml:"floor_price" json:"floor_price"`
	Currency   string  `yaml:"currency" json:"currency"`
	Change24h  float64 `yaml:"change_24h" json:"change_24h"`
}

type Topic struct {
	Title   string `yaml:"title" json:"title"`
	Summary string `yaml:"summary" json:"summary"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Script) == "" {
		return errors.New("script is required")
	}
	for i, t := range r.Topics {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("topic %d has no title", i+1)
		}
	}
	return nil
}

// LoadRequest reads a job file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func LoadRequest(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("read job file: %w", err)
	}

	var req Request
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &req)
	} else {
		err = yaml.Unmarshal(data, &req)
	}
	if err != nil {
		return Request{}, fmt.Errorf("parse job file: %w", err)
	}

	return req, req.Validate()
}
