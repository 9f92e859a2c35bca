package stages

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/identity"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// Service exposes catalog administration and the lookups consumed by the
// transition engine.
type Service interface {
	Create(ctx context.Context, input CreateStageInput) (*Stage, error)
	Update(ctx context.Context, input UpdateStageInput) (*Stage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*Stage, error)
	GetByName(ctx context.Context, name string) (*Stage, error)
	List(ctx context.Context) ([]*Stage, error)
	ListBefore(ctx context.Context, sortOrder int) ([]*Stage, error)
	Seed(ctx context.Context, inputs []CreateStageInput) (SeedResult, error)
}

// CreateStageInput describes a new catalog entry.
type CreateStageInput struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
	Icon        string `json:"icon,omitempty"`
}

// UpdateStageInput replaces the mutable fields of an existing stage.
type UpdateStageInput struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description string
	SortOrder   int
	Icon        string
}

// SeedResult reports which catalog entries a seed run created.
type SeedResult struct {
	Created []string
	Skipped []string
}

var (
	ErrStageIDRequired   = errors.New("stages: stage id required")
	ErrStageNameRequired = errors.New("stages: stage name required")
	ErrStageNameExists   = errors.New("stages: stage name already exists")
	ErrSortOrderConflict = errors.New("stages: sort order already used by another stage")
	ErrStageInvalid      = errors.New("stages: stage input invalid")
)

// IDGenerator derives the identifier for a new stage from its machine name.
type IDGenerator func(name string) uuid.UUID

// ServiceOption configures stage service behaviour.
type ServiceOption func(*service)

// WithClock overrides the time source used by the service.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides the deterministic stage ID strategy.
func WithIDGenerator(generator IDGenerator) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.id = generator
		}
	}
}

// WithLogger injects the service logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo   Repository
	now    func() time.Time
	id     IDGenerator
	logger interfaces.Logger
}

// NewService constructs a stage catalog service.
func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		now:    time.Now,
		id:     identity.StageUUID,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateStageInput) (*Stage, error) {
	name, err := machineName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateFields(input.DisplayName, input.SortOrder, input.Icon); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.ensureSortOrderAvailable(ctx, input.SortOrder, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.now()
	stage := &Stage{
		ID:          s.id(name),
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		SortOrder:   input.SortOrder,
		Icon:        strings.TrimSpace(input.Icon),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(ctx, stage)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("stages.create.success", "stage", created.Name, "sort_order", created.SortOrder)
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateStageInput) (*Stage, error) {
	if input.ID == uuid.Nil {
		return nil, ErrStageIDRequired
	}
	existing, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	name, err := machineName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateFields(input.DisplayName, input.SortOrder, input.Icon); err != nil {
		return nil, err
	}
	if name != existing.Name {
		if err := s.ensureNameAvailable(ctx, name, existing.ID); err != nil {
			return nil, err
		}
	}
	if input.SortOrder != existing.SortOrder {
		if err := s.ensureSortOrderAvailable(ctx, input.SortOrder, existing.ID); err != nil {
			return nil, err
		}
	}

	existing.Name = name
	existing.DisplayName = strings.TrimSpace(input.DisplayName)
	existing.Description = strings.TrimSpace(input.Description)
	existing.SortOrder = input.SortOrder
	existing.Icon = strings.TrimSpace(input.Icon)
	existing.UpdatedAt = s.now()
	return s.repo.Update(ctx, existing)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrStageIDRequired
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Stage, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByName(ctx context.Context, name string) (*Stage, error) {
	normalized, err := machineName(name)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByName(ctx, normalized)
}

func (s *service) List(ctx context.Context) ([]*Stage, error) {
	return s.repo.List(ctx)
}

func (s *service) ListBefore(ctx context.Context, sortOrder int) ([]*Stage, error) {
	return s.repo.ListBefore(ctx, sortOrder)
}

func (s *service) Seed(ctx context.Context, inputs []CreateStageInput) (SeedResult, error) {
	result := SeedResult{}
	for _, input := range inputs {
		name, err := machineName(input.Name)
		if err != nil {
			return result, err
		}
		if _, err := s.repo.GetByName(ctx, name); err == nil {
			result.Skipped = append(result.Skipped, name)
			continue
		} else if !IsNotFound(err) {
			return result, err
		}
		if _, err := s.Create(ctx, input); err != nil {
			return result, err
		}
		result.Created = append(result.Created, name)
	}
	s.logger.Info("stages.seed.complete", "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}

func (s *service) ensureNameAvailable(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing != nil && existing.ID != self {
		return ErrStageNameExists
	}
	return nil
}

func (s *service) ensureSortOrderAvailable(ctx context.Context, sortOrder int, self uuid.UUID) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, stage := range all {
		if stage.SortOrder == sortOrder && stage.ID != self {
			return ErrSortOrderConflict
		}
	}
	return nil
}

// IsNotFound reports whether err is a stage lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// machineName normalises a stage key into its underscore form, e.g. "Quality Check" -> "quality_check".
func machineName(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", ErrStageNameRequired
	}
	normalized, err := slug.Normalize(trimmed)
	if err != nil || normalized == "" {
		normalized = strings.ToLower(trimmed)
	}
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return normalized, nil
}

func validateFields(displayName string, sortOrder int, icon string) error {
	err := validation.Errors{
		"display_name": validation.Validate(strings.TrimSpace(displayName), validation.Required, validation.Length(1, 120)),
		"sort_order":   validation.Validate(sortOrder, validation.Min(0)),
		"icon":         validation.Validate(icon, validation.Length(0, 64)),
	}.Filter()
	if err != nil {
		return errors.Join(ErrStageInvalid, err)
	}
	return nil
}
