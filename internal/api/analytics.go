package api

import (
	"context"

	"github.com/Najib-Murshed-UWO/FinEdge/internal/models"
)

// AnalyticsService covers the role dashboards under /analytics.
type AnalyticsService struct {
	caller Caller
}

func (s *AnalyticsService) Customer(ctx context.Context) (*models.CustomerAnalytics, error) {
	var resp models.CustomerAnalytics
	if err := get(ctx, s.caller, "/analytics/customer", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *AnalyticsService) Banker(ctx context.Context) (*models.BankerAnalytics, error) {
	var resp models.BankerAnalytics
	if err := get(ctx, s.caller, "/analytics/banker", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *AnalyticsService) Admin(ctx context.Context) (*models.AdminAnalytics, error) {
	var resp models.AdminAnalytics
	if err := get(ctx, s.caller, "/analytics/admin", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
