package stages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/identity"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestService() Service {
	return NewService(NewMemoryRepository(), WithClock(func() time.Time { return fixedNow }))
}

func TestCreateNormalisesNameAndUsesDeterministicID(t *testing.T) {
	svc := newTestService()
	stage, err := svc.Create(context.Background(), CreateStageInput{
		Name:        "Quality Check",
		DisplayName: "  Quality Check ",
		SortOrder:   3,
		Icon:        "badge-check",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stage.Name != "quality_check" {
		t.Fatalf("expected machine name quality_check, got %q", stage.Name)
	}
	if stage.DisplayName != "Quality Check" {
		t.Fatalf("expected trimmed display name, got %q", stage.DisplayName)
	}
	if stage.ID != identity.StageUUID("quality_check") {
		t.Fatalf("expected deterministic id, got %s", stage.ID)
	}
	if !stage.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created_at from clock, got %s", stage.CreatedAt)
	}

	fetched, err := svc.GetByName(context.Background(), "quality-check")
	if err != nil || fetched.ID != stage.ID {
		t.Fatalf("get by name: %+v %v", fetched, err)
	}
}

func TestCreateRejectsConflictsAndInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	if _, err := svc.Create(ctx, CreateStageInput{Name: "shipped", DisplayName: "Shipped", SortOrder: 4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name  string
		input CreateStageInput
		want  error
	}{
		{"duplicate name", CreateStageInput{Name: "Shipped", DisplayName: "Again", SortOrder: 9}, ErrStageNameExists},
		{"duplicate sort", CreateStageInput{Name: "delivered", DisplayName: "Delivered", SortOrder: 4}, ErrSortOrderConflict},
		{"missing name", CreateStageInput{Name: "  ", DisplayName: "Blank", SortOrder: 7}, ErrStageNameRequired},
		{"missing display", CreateStageInput{Name: "packed", SortOrder: 7}, ErrStageInvalid},
		{"negative sort", CreateStageInput{Name: "packed", DisplayName: "Packed", SortOrder: -1}, ErrStageInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateAndListBefore(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}
	if _, err := svc.Seed(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	shipped, err := svc.GetByName(ctx, "shipped")
	if err != nil {
		t.Fatalf("get shipped: %v", err)
	}
	before, err := svc.ListBefore(ctx, shipped.SortOrder)
	if err != nil {
		t.Fatalf("list before: %v", err)
	}
	names := make([]string, 0, len(before))
	for _, stage := range before {
		names = append(names, stage.Name)
	}
	want := []string{"payment_received", "in_production", "quality_check"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	updated, err := svc.Update(ctx, UpdateStageInput{
		ID:          shipped.ID,
		Name:        "shipped",
		DisplayName: "Shipped to you",
		SortOrder:   40,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Shipped to you" || updated.SortOrder != 40 {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(ctx, UpdateStageInput{ID: shipped.ID, Name: "shipped", DisplayName: "Shipped", SortOrder: 1}); !errors.Is(err, ErrSortOrderConflict) {
		t.Fatalf("expected sort conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, UpdateStageInput{Name: "x", DisplayName: "x"}); !errors.Is(err, ErrStageIDRequired) {
		t.Fatalf("expected ErrStageIDRequired, got %v", err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSeedSkipsExistingStages(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}

	first, err := svc.Seed(ctx, seed)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if len(first.Created) != 5 || len(first.Skipped) != 0 {
		t.Fatalf("unexpected first seed %+v", first)
	}
	second, err := svc.Seed(ctx, seed)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if len(second.Created) != 0 || len(second.Skipped) != 5 {
		t.Fatalf("unexpected second seed %+v", second)
	}
}

func TestDeleteStage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	stage, err := svc.Create(ctx, CreateStageInput{Name: "packed", DisplayName: "Packed", SortOrder: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, stage.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByName(ctx, "packed"); !IsNotFound(err) {
		t.Fatalf("expected deleted stage to be gone, got %v", err)
	}
	if err := svc.Delete(ctx, uuid.Nil); !errors.Is(err, ErrStageIDRequired) {
		t.Fatalf("expected ErrStageIDRequired, got %v", err)
	}
}
