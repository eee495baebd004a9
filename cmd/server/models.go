package main

import (
	"github.com/liamcoop/variations/variations"
)

// API response models

// GenerateResponse is the body returned by POST /api/v1/generate
type GenerateResponse struct {
	*variations.Result
	GenerationTime string `json:"generationTime"`
}

// GenerationsListResponse represents the response for listing generations
type GenerationsListResponse struct {
	Generations []*variations.Generation `json:"generations"`
}

// RelationsResponse lists the relation labels a condition accepts
type RelationsResponse struct {
	Relations []string `json:"relations"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string           `json:"status"`
	History  string           `json:"history"`
	Counters map[string]int64 `json:"counters,omitempty"`
	Error    string           `json:"error,omitempty"`
}
