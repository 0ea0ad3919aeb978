package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TaxonomyQuery holds the query parameters of the genre endpoints
type TaxonomyQuery struct {
	IncludeInactive bool `form:"include_inactive"`
}

// GraphQuery holds the query parameters of the network graph endpoint
type GraphQuery struct {
	GenreID         *int64 `form:"genre_id" validate:"omitempty,gt=0"`
	IncludeInactive bool   `form:"include_inactive"`
}

// CreateGenreRequest represents the request body for creating a genre
type CreateGenreRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=100"`
	ParentID     *int64 `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
	IsActive     *bool  `json:"is_active,omitempty"`
}

// Active returns the requested visibility, defaulting to true
func (r *CreateGenreRequest) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// Validate validates the graph query
func (q *GraphQuery) Validate() error {
	return validate.Struct(q)
}

// Validate validates the create genre request
func (r *CreateGenreRequest) Validate() error {
	return validate.Struct(r)
}
