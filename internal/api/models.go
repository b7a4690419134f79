package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name      string `json:"name"       validate:"required,max=150"`
	Password  string `json:"password"   validate:"required,min=12,max=72"`
	IsManager bool   `json:"is_manager"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	IsManager    bool      `json:"is_manager"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    string    `json:"expires_at"`
}

// DimensionsRequest is an x/y/z triple from a request body.
type DimensionsRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ItemRequest is one item to place.
type ItemRequest struct {
	Name       string            `json:"name"       validate:"required,max=255"`
	Dimensions DimensionsRequest `json:"dimensions"`
	FaceUp     bool              `json:"face_up"`
	Fragile    bool              `json:"fragile"`
}

// CreateTaskRequest defines the payload for creating a packing task.
// Dimension ranges are checked by the domain so the reason names the item.
// Items are capped at 2000; verifying a placement is quadratic in the item
// count and is not covered by the strategy timeout.
type CreateTaskRequest struct {
	WorkerID *uuid.UUID        `json:"worker_id"`
	Space    DimensionsRequest `json:"space_info" validate:"required"`
	Items    []ItemRequest     `json:"items"      validate:"max=2000,dive"`
}

func (r CreateTaskRequest) space() placement.Space {
	return placement.Space{X: r.Space.X, Y: r.Space.Y, Z: r.Space.Z}
}

func (r CreateTaskRequest) items() []placement.Item {
	items := make([]placement.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = placement.Item{
			Name:       it.Name,
			Dimensions: placement.Dimensions{X: it.Dimensions.X, Y: it.Dimensions.Y, Z: it.Dimensions.Z},
			FaceUp:     it.FaceUp,
			Fragile:    it.Fragile,
		}
	}
	return items
}

// TaskResponse is a task with its placed items in order_id order.
type TaskResponse struct {
	ID              uuid.UUID              `json:"id"`
	CreatorID       uuid.UUID              `json:"creator_id"`
	WorkerID        *uuid.UUID             `json:"worker_id,omitempty"`
	Space           placement.Space        `json:"space_info"`
	Items           []placement.PlacedItem `json:"items"`
	StrategyName    string                 `json:"strategy_name"`
	StrategyVersion uint64                 `json:"strategy_version"`
	CreatedAt       time.Time              `json:"created_at"`
}

// TaskSummary is a task without its items, used in listings.
type TaskSummary struct {
	ID              uuid.UUID       `json:"id"`
	CreatorID       uuid.UUID       `json:"creator_id"`
	WorkerID        *uuid.UUID      `json:"worker_id,omitempty"`
	Space           placement.Space `json:"space_info"`
	StrategyName    string          `json:"strategy_name"`
	StrategyVersion uint64          `json:"strategy_version"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toTaskResponse(t *domain.Task) TaskResponse {
	items := t.Items
	if items == nil {
		items = []placement.PlacedItem{}
	}
	return TaskResponse{
		ID:              t.ID,
		CreatorID:       t.CreatorID,
		WorkerID:        t.WorkerID,
		Space:           t.Space,
		Items:           items,
		StrategyName:    t.StrategyName,
		StrategyVersion: t.StrategyVersion,
		CreatedAt:       t.CreatedAt,
	}
}

func toTaskSummaries(tasks []*domain.Task) []TaskSummary {
	out := make([]TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskSummary{
			ID:              t.ID,
			CreatorID:       t.CreatorID,
			WorkerID:        t.WorkerID,
			Space:           t.Space,
			StrategyName:    t.StrategyName,
			StrategyVersion: t.StrategyVersion,
			CreatedAt:       t.CreatedAt,
		})
	}
	return out
}

// GeometryErrorResponse adds the broken invariants to an error response.
type GeometryErrorResponse struct {
	Error      string                `json:"error"`
	TraceID    string                `json:"trace_id,omitempty"`
	Violations []placement.Violation `json:"violations"`
}

// UploadStrategyResponse is returned when a candidate becomes active.
type UploadStrategyResponse struct {
	Message    string `json:"message"`
	Function   string `json:"function"`
	Version    uint64 `json:"version"`
	SourceHash string `json:"source_hash"`
}

// ActiveStrategyResponse describes the strategy placements currently use.
type ActiveStrategyResponse struct {
	Name        string    `json:"name"`
	Version     uint64    `json:"version"`
	SourceHash  string    `json:"source_hash,omitempty"`
	Origin      string    `json:"origin"`
	ActivatedAt time.Time `json:"activated_at"`
}

func toActiveStrategyResponse(a *strategy.ActiveStrategy) ActiveStrategyResponse {
	return ActiveStrategyResponse{
		Name:        a.Strategy.Name(),
		Version:     a.Version,
		SourceHash:  a.SourceHash,
		Origin:      a.Origin,
		ActivatedAt: a.ActivatedAt,
	}
}
