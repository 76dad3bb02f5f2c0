package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/voynichlabs/voynich-backend/pkg/db/models"
	"github.com/voynichlabs/voynich-backend/pkg/enums"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/pagination"
)

// RecordInput describes one feed entry to append. EntityID is the
// referenced row's key rendered as text, since votable targets use bigint
// keys while analysis results use uuids.
type RecordInput struct {
	UserID     uuid.UUID
	Type       enums.ActivityType
	EntityID   string
	EntityType string
	IsPublic   bool
	Metadata   json.RawMessage
}

// Service appends and reads activity feed entries. Entries are immutable
// once written.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.ActivityFeedEntry, error)
	RecordVoteCast(ctx context.Context, userID uuid.UUID, targetType enums.VoteTargetType, targetID int64, metadata json.RawMessage) error
	QueryPublic(ctx context.Context, page pagination.Params) ([]models.ActivityFeedEntry, error)
	QueryForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.ActivityFeedEntry, error)
}

type service struct {
	repo Repository
}

// NewService wires an activity feed service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.ActivityFeedEntry, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid activity type %q", input.Type))
	}
	if input.EntityType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity type is required")
	}

	entry := &models.ActivityFeedEntry{
		UserID:     input.UserID,
		Type:       input.Type,
		EntityID:   input.EntityID,
		EntityType: input.EntityType,
		Metadata:   input.Metadata,
		IsPublic:   input.IsPublic,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append activity entry")
	}
	return entry, nil
}

func (s *service) RecordVoteCast(ctx context.Context, userID uuid.UUID, targetType enums.VoteTargetType, targetID int64, metadata json.RawMessage) error {
	_, err := s.Record(ctx, RecordInput{
		UserID:     userID,
		Type:       enums.ActivityTypeVoteCast,
		EntityID:   strconv.FormatInt(targetID, 10),
		EntityType: string(targetType),
		IsPublic:   true,
		Metadata:   metadata,
	})
	return err
}

func (s *service) QueryPublic(ctx context.Context, page pagination.Params) ([]models.ActivityFeedEntry, error) {
	entries, err := s.repo.ListPublic(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list public activity")
	}
	return entries, nil
}

func (s *service) QueryForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.ActivityFeedEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	entries, err := s.repo.ListForUser(ctx, userID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user activity")
	}
	return entries, nil
}
