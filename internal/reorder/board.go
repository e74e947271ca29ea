// Package reorder keeps a client-side view of a board and reconciles drag-and-drop
// moves with the server.
//
// Intra-column order is local only; the server has no rank field. A move across
// columns is applied optimistically, sent as a single task patch, and rolled back
// if the server rejects it.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/and161185/taskboard/internal/convert"
	"github.com/and161185/taskboard/internal/model"
)

var (
	// ErrCardBusy is returned for a move while the card is being edited or is mid-move.
	ErrCardBusy = errors.New("card is being edited")
	// ErrBadPosition is returned for an unknown column or an index out of range.
	ErrBadPosition = errors.New("invalid position")
)

// Columns are the board columns in display order.
var Columns = []string{model.StatusTodo, model.StatusInProgress, model.StatusDone}

// Patcher sends a sparse task update to the server.
type Patcher interface {
	PatchTask(ctx context.Context, id string, req convert.TaskPatchRequest) (*convert.Task, error)
}

// Position addresses a card slot.
type Position struct {
	Column string
	Index  int
}

// Board is safe for concurrent use.
type Board struct {
	mu   sync.Mutex
	cols map[string][]convert.Task
	busy map[string]bool
	api  Patcher
}

// New groups tasks into columns, keeping their relative order. Tasks with a status
// outside Columns are shown under todo with their status untouched.
func New(api Patcher, tasks []convert.Task) *Board {
	b := &Board{cols: make(map[string][]convert.Task, len(Columns)), busy: map[string]bool{}, api: api}
	for _, c := range Columns {
		b.cols[c] = []convert.Task{}
	}
	for _, t := range tasks {
		col := columnOf(t.Status)
		b.cols[col] = append(b.cols[col], t)
	}
	return b
}

func columnOf(status string) string {
	for _, c := range Columns {
		if c == status {
			return c
		}
	}
	return model.StatusTodo
}

// Column returns a copy of the column's cards.
func (b *Board) Column(name string) []convert.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]convert.Task(nil), b.cols[name]...)
}

// Find locates a card by id.
func (b *Board) Find(id string) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.find(id)
}

func (b *Board) find(id string) (Position, bool) {
	for _, c := range Columns {
		for i, t := range b.cols[c] {
			if t.ID == id {
				return Position{Column: c, Index: i}, true
			}
		}
	}
	return Position{}, false
}

// BeginEdit opens an edit on the card; moves of it fail with ErrCardBusy until EndEdit.
func (b *Board) BeginEdit(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.find(id); !ok {
		return fmt.Errorf("card %s: %w", id, ErrBadPosition)
	}
	if b.busy[id] {
		return ErrCardBusy
	}
	b.busy[id] = true
	return nil
}

// EndEdit closes the edit and, if updated is non-nil, replaces the card in place.
func (b *Board) EndEdit(id string, updated *convert.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, id)
	if updated != nil {
		b.replace(*updated)
	}
}

// replace swaps the card, moving it if its status now maps to another column.
func (b *Board) replace(t convert.Task) {
	pos, ok := b.find(t.ID)
	if !ok {
		return
	}
	if col := columnOf(t.Status); col != pos.Column {
		b.cols[pos.Column] = remove(b.cols[pos.Column], pos.Index)
		b.cols[col] = append(b.cols[col], t)
		return
	}
	b.cols[pos.Column][pos.Index] = t
}

// Move applies a drag from one slot to another. A drop on the same column only
// reorders locally; a drop on another column patches the task's status on the server.
func (b *Board) Move(ctx context.Context, from, to Position) error {
	b.mu.Lock()
	src, ok := b.cols[from.Column]
	if !ok || from.Index < 0 || from.Index >= len(src) {
		b.mu.Unlock()
		return ErrBadPosition
	}
	dst, ok := b.cols[to.Column]
	if !ok || to.Index < 0 {
		b.mu.Unlock()
		return ErrBadPosition
	}
	card := src[from.Index]
	if b.busy[card.ID] {
		b.mu.Unlock()
		return ErrCardBusy
	}
	if from == to {
		b.mu.Unlock()
		return nil
	}

	if from.Column == to.Column {
		rest := remove(src, from.Index)
		b.cols[from.Column] = insert(rest, to.Index, card)
		b.mu.Unlock()
		return nil
	}

	moved := card
	moved.Status = to.Column
	b.cols[from.Column] = remove(src, from.Index)
	b.cols[to.Column] = insert(dst, to.Index, moved)
	b.busy[card.ID] = true
	b.mu.Unlock()

	status, title, desc := to.Column, card.Title, card.Description
	got, err := b.api.PatchTask(ctx, card.ID, convert.TaskPatchRequest{Status: &status, Title: &title, Description: &desc})

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.busy, card.ID)
	if err != nil {
		b.rollback(card, from)
		return fmt.Errorf("move %s to %s: %w", card.ID, to.Column, err)
	}
	if got != nil {
		b.replace(*got)
	}
	return nil
}

// rollback returns card to its original slot, clamped to the column's current length.
func (b *Board) rollback(card convert.Task, from Position) {
	if pos, ok := b.find(card.ID); ok {
		b.cols[pos.Column] = remove(b.cols[pos.Column], pos.Index)
	}
	b.cols[from.Column] = insert(b.cols[from.Column], from.Index, card)
}

func remove(s []convert.Task, i int) []convert.Task {
	out := make([]convert.Task, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// insert places t at i, appending when i is past the end.
func insert(s []convert.Task, i int, t convert.Task) []convert.Task {
	if i > len(s) {
		i = len(s)
	}
	out := make([]convert.Task, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, t)
	return append(out, s[i:]...)
}
