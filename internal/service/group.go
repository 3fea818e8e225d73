package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// GroupService manages customer groups.
type GroupService struct {
	groupRepo repository.GroupRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewGroupService creates a new group service.
func NewGroupService(groupRepo repository.GroupRepository, logger *slog.Logger) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a group. Names are unique.
func (s *GroupService) Create(ctx context.Context, name string, metadata map[string]any) (*domain.CustomerGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	now := s.now()
	group := &domain.CustomerGroup{
		ID:        uuid.NewString(),
		Name:      name,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create customer group: %w", err)
	}

	s.logger.InfoContext(ctx, "customer group created",
		slog.String("group_id", group.ID),
		slog.String("name", group.Name),
	)
	return group, nil
}

func (s *GroupService) Get(ctx context.Context, id string) (*domain.CustomerGroup, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer group: %w", err)
	}
	return group, nil
}

func (s *GroupService) List(ctx context.Context, offset, limit int) ([]domain.CustomerGroup, int, error) {
	groups, total, err := s.groupRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list customer groups: %w", err)
	}
	return groups, total, nil
}

// Delete removes a group and its memberships.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer group: %w", err)
	}
	s.logger.InfoContext(ctx, "customer group deleted", slog.String("group_id", id))
	return nil
}
