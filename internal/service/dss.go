package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/models"
)

const DefaultBatchSize = 20

var ErrInvalidMode = errors.New("invalid scoring mode")

// DSSService scores claims with either the rule-based or the ML scorer.
type DSSService struct {
	api    APIClient
	portal *PortalService
	log    *zap.SugaredLogger
}

func NewDSSService(api APIClient, portal *PortalService, log *zap.SugaredLogger) *DSSService {
	return &DSSService{api: api, portal: portal, log: log}
}

func scorePath(mode string, batch bool) (string, error) {
	var base string
	switch mode {
	case "", models.ModeRules:
		base = "/dss/score"
	case models.ModeML:
		base = "/dss/ml/score"
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if batch {
		return base + "-batch", nil
	}
	return base, nil
}

func (s *DSSService) Score(ctx context.Context, mode string, claim models.Claim) (*models.ScoreResponse, error) {
	path, err := scorePath(mode, false)
	if err != nil {
		return nil, err
	}
	var resp models.ScoreResponse
	if err := s.api.Do(ctx, &client.Request{Method: http.MethodPost, Path: path, Body: claim}, &resp); err != nil {
		return nil, fmt.Errorf("score claim %s: %w", claim.ClaimID, err)
	}
	return &resp, nil
}

func (s *DSSService) ScoreBatch(ctx context.Context, mode string, claims []models.Claim) (*models.BatchResponse, error) {
	path, err := scorePath(mode, true)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []models.Claim{}
	}
	var resp models.BatchResponse
	req := &client.Request{Method: http.MethodPost, Path: path, Body: models.BatchRequest{Claims: claims}}
	if err := s.api.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}
	return &resp, nil
}

// SampleBatch scores the first limit claims of the backend's claim list and
// returns them ranked. A non-positive limit means DefaultBatchSize.
func (s *DSSService) SampleBatch(ctx context.Context, mode string, limit int) (*models.BatchResponse, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	claims, err := s.portal.ListClaims(ctx)
	if err != nil {
		return nil, err
	}
	if len(claims) > limit {
		claims = claims[:limit]
	}

	resp, err := s.ScoreBatch(ctx, mode, claims)
	if err != nil {
		return nil, err
	}
	resp.Results = Rank(resp.Results)
	s.log.Debugw("scored sample batch", "mode", mode, "count", len(resp.Results))
	return resp, nil
}

// Rank returns a copy of results ordered by score, highest first. Equal
// scores keep their order.
func Rank(results []models.BatchItem) []models.BatchItem {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b models.BatchItem) int {
		return b.Result.Score - a.Result.Score
	})
	return ranked
}
