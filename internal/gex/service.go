// Package gex implements lookups and staleness handling over persisted
// positioning signals.
package gex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"options-controller/config"
	"options-controller/internal/domain"
)

// Repository is the persistence dependency the service reads from.
type Repository interface {
	Latest(ctx context.Context, symbol, timeframe string) (*domain.GEXSignal, error)
	RecentTwo(ctx context.Context, symbol, timeframe string) ([]domain.GEXSignal, error)
}

// Service answers GEX lookups and staleness/flip questions.
type Service struct {
	repo Repository
	cfg  config.GEXConfig
}

// NewService creates a GEX Service bound to its repository and staleness configuration.
func NewService(repo Repository, cfg config.GEXConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// GetLatestSignal returns the newest GEX row for symbol/timeframe, or nil
// if none exists. timeframe is normalized before lookup (e.g. "1h" → "60m").
func (s *Service) GetLatestSignal(ctx context.Context, symbol, timeframe string) (*domain.GEXSignal, error) {
	sig, err := s.repo.Latest(ctx, symbol, NormalizeTimeframe(timeframe))
	if err != nil {
		return nil, fmt.Errorf("gex: get latest signal: %w", err)
	}
	return sig, nil
}

// IsStale reports whether signal is older than the configured staleness threshold.
func (s *Service) IsStale(signal domain.GEXSignal, now time.Time) bool {
	maxAge := time.Duration(s.cfg.MaxStaleMinutes) * time.Minute
	return signal.Age(now) > maxAge
}

// EffectiveWeight returns 1.0 for a fresh signal, or a reduced weight for a stale one.
func (s *Service) EffectiveWeight(signal domain.GEXSignal, now time.Time) float64 {
	if s.IsStale(signal, now) {
		return 1 - s.cfg.StaleWeightReduction
	}
	return 1.0
}

// FlipResult is the outcome of detectFlip.
type FlipResult struct {
	HasFlipped bool
	Current    *domain.GEXSignal
	Previous   *domain.GEXSignal
}

// DetectFlip compares the two most recent GEX rows for symbol/timeframe.
// Fewer than two rows always yields HasFlipped=false.
func (s *Service) DetectFlip(ctx context.Context, symbol, timeframe string) (FlipResult, error) {
	rows, err := s.repo.RecentTwo(ctx, symbol, NormalizeTimeframe(timeframe))
	if err != nil {
		return FlipResult{}, fmt.Errorf("gex: detect flip: %w", err)
	}

	if len(rows) < 2 {
		result := FlipResult{}
		if len(rows) == 1 {
			result.Current = &rows[0]
		}
		return result, nil
	}

	current, previous := rows[0], rows[1]
	return FlipResult{
		HasFlipped: current.Direction != previous.Direction,
		Current:    &current,
		Previous:   &previous,
	}, nil
}

// NormalizeTimeframe maps shorthand intervals to the service's minute
// convention, the same mapping the Normalizer applies to inbound signals.
func NormalizeTimeframe(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch raw {
	case "1h", "60min", "hour":
		return "60m"
	case "4h":
		return "240m"
	case "1d", "daily", "day":
		return "1440m"
	default:
		return raw
	}
}
