package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
)

// MetricZScore is the only metric alerts evaluate; other names fall back to it.
const MetricZScore = "zscore"

// RemovedMessage is returned after a successful delete.
const RemovedMessage = "Alert removed successfully!"

// NewAlert is the input of Add.
type NewAlert struct {
	SymbolX   string
	SymbolY   string
	Metric    string
	Operator  string
	Threshold float64
	Message   string
}

// Service is the alert registry. Ids increase from 1 and are never reused.
type Service struct {
	mu     sync.RWMutex
	alerts []models.Alert
	nextID int64
	repo   domrepo.AlertRepository
	now    func() time.Time
}

// NewService creates an empty registry backed by repo. A nil repo keeps alerts in memory only.
func NewService(repo domrepo.AlertRepository) *Service {
	return &Service{nextID: 1, repo: repo, now: time.Now}
}

// Load replaces the registry with persisted alerts and continues ids after the highest one.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	stored, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = stored
	for _, a := range stored {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
	}
	return nil
}

// Add registers an active alert. An empty message defaults to "metric operator threshold".
func (s *Service) Add(ctx context.Context, in NewAlert) (models.Alert, error) {
	if !validOperator(in.Operator) {
		return models.Alert{}, fmt.Errorf("unknown operator %q", in.Operator)
	}
	msg := in.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s %s", in.Metric, in.Operator, strconv.FormatFloat(in.Threshold, 'f', -1, 64))
	}

	s.mu.Lock()
	a := models.Alert{
		ID:        s.nextID,
		SymbolX:   strings.ToUpper(in.SymbolX),
		SymbolY:   strings.ToUpper(in.SymbolY),
		Metric:    in.Metric,
		Operator:  in.Operator,
		Threshold: in.Threshold,
		Message:   msg,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	s.nextID++
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, &a); err != nil {
			s.mu.Lock()
			s.removeLocked(a.ID)
			s.mu.Unlock()
			return models.Alert{}, err
		}
	}
	return a, nil
}

// Remove deletes an alert by id; unknown ids return ErrNotFound.
func (s *Service) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	removed, ok := s.removeLocked(id)
	s.mu.Unlock()
	if !ok {
		return domrepo.ErrNotFound
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domrepo.ErrNotFound) {
			s.mu.Lock()
			s.alerts = append(s.alerts, removed)
			s.mu.Unlock()
			return err
		}
	}
	return nil
}

func (s *Service) removeLocked(id int64) (models.Alert, bool) {
	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return a, true
		}
	}
	return models.Alert{}, false
}

// List returns a copy of all alerts in insertion order.
func (s *Service) List() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Check returns the active alerts for the pair whose rule matches the latest z-score.
func (s *Service) Check(result *models.AnalyticsResult, symbolX, symbolY string) []models.TriggeredAlert {
	z, ok := result.LatestZScore()
	if !ok {
		return nil
	}
	symbolX, symbolY = strings.ToUpper(symbolX), strings.ToUpper(symbolY)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TriggeredAlert
	for _, a := range s.alerts {
		if !a.Active || a.SymbolX != symbolX || a.SymbolY != symbolY {
			continue
		}
		if Evaluate(a.Operator, z, a.Threshold) {
			out = append(out, models.TriggeredAlert{Alert: a, CurrentValue: z})
		}
	}
	return out
}

// Evaluate applies op to value and threshold. Unknown operators never match.
func Evaluate(op string, value, threshold float64) bool {
	switch op {
	case models.OpGreater:
		return value > threshold
	case models.OpLess:
		return value < threshold
	case models.OpGreaterEqual:
		return value >= threshold
	case models.OpLessEqual:
		return value <= threshold
	case models.OpEqual:
		return value == threshold
	default:
		return false
	}
}

func validOperator(op string) bool {
	switch op {
	case models.OpGreater, models.OpLess, models.OpGreaterEqual, models.OpLessEqual, models.OpEqual:
		return true
	}
	return false
}
