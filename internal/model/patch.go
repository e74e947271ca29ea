package model

import "github.com/gofrs/uuid/v5"

// Field is a single column assignment produced from a patch.
type Field struct {
	Column string
	Value  any
}

// TaskPatch is a sparse task update. A nil pointer means "leave unchanged".
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Color       *string
	BoardID     *uuid.UUID
}

// Empty reports whether no field is present.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Color == nil && p.BoardID == nil
}

// Fields translates the present keys to column assignments in a fixed order.
func (p TaskPatch) Fields() []Field {
	var out []Field
	if p.Title != nil {
		out = append(out, Field{Column: "title", Value: *p.Title})
	}
	if p.Description != nil {
		out = append(out, Field{Column: "description", Value: *p.Description})
	}
	if p.Status != nil {
		out = append(out, Field{Column: "status", Value: *p.Status})
	}
	if p.Color != nil {
		out = append(out, Field{Column: "color", Value: *p.Color})
	}
	if p.BoardID != nil {
		out = append(out, Field{Column: "board_id", Value: *p.BoardID})
	}
	return out
}

// BoardPatch is a sparse board update.
type BoardPatch struct {
	Name        *string
	Description *string
}

// Empty reports whether no field is present.
func (p BoardPatch) Empty() bool { return p.Name == nil && p.Description == nil }

// Fields translates the present keys to column assignments.
func (p BoardPatch) Fields() []Field {
	var out []Field
	if p.Name != nil {
		out = append(out, Field{Column: "name", Value: *p.Name})
	}
	if p.Description != nil {
		out = append(out, Field{Column: "description", Value: *p.Description})
	}
	return out
}

// TagPatch is a sparse tag update.
type TagPatch struct {
	Label *string
	Color *string
}

// Empty reports whether no field is present.
func (p TagPatch) Empty() bool { return p.Label == nil && p.Color == nil }

// Fields translates the present keys to column assignments.
func (p TagPatch) Fields() []Field {
	var out []Field
	if p.Label != nil {
		out = append(out, Field{Column: "label", Value: *p.Label})
	}
	if p.Color != nil {
		out = append(out, Field{Column: "color", Value: *p.Color})
	}
	return out
}

// ProfilePatch is a sparse profile update.
type ProfilePatch struct {
	Name *string
}
