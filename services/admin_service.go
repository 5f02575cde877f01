package services

import (
	"context"

	"lipia/models"
	"lipia/store"

	"github.com/sirupsen/logrus"
)

type AdminService struct {
	store store.Store
	plans models.PlanTable
	log   *logrus.Logger
}

func NewAdminService(st store.Store, plans models.PlanTable, log *logrus.Logger) *AdminService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AdminService{store: st, plans: plans, log: log}
}

// GetStats reports cache sizes alongside the active pricing table
func (s *AdminService) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"cached_users": stats.Users,
		"transactions": stats.Transactions,
		"plans":        s.plans,
	}, nil
}

// ResetCache drops every cached user and transaction
func (s *AdminService) ResetCache(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.log.Warn("session cache cleared")
	return nil
}
