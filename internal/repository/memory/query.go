package memory

import (
	"fmt"
	"sort"
	"time"

	"career-chat-be/internal/repository/specification"
)

// columnFunc returns the value stored under a column name, false when the row has no such column.
type columnFunc[T any] func(row T, column string) (any, bool)

type query[T any] struct {
	column  columnFunc[T]
	filters []func(T) bool
	orders  []specification.OrderBy
	page    *specification.Pagination
}

// compile translates the GORM specifications used by the services into in-memory predicates.
func compile[T any](column columnFunc[T], specs []specification.Specification) (*query[T], error) {
	q := &query[T]{column: column}
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			q.equal("id", s.ID, true)
		case specification.NotID:
			q.equal("id", s.ID, false)
		case specification.ByEmail:
			q.equal("email", s.Email, true)
		case specification.UserOwnedBy:
			q.equal("user_id", s.UserID, true)
		case specification.ByChatSessionID:
			q.equal("chat_session_id", s.ChatSessionID, true)
		case specification.CreatedBefore:
			at := s.At
			q.filters = append(q.filters, func(row T) bool {
				got, ok := column(row, "created_at")
				t, isTime := got.(time.Time)
				return ok && isTime && t.Before(at)
			})
		case specification.OrderBy:
			q.orders = append(q.orders, s)
		case specification.Pagination:
			page := s
			q.page = &page
		default:
			return nil, fmt.Errorf("memory: unsupported specification %T", spec)
		}
	}
	return q, nil
}

func (q *query[T]) equal(column string, want any, keep bool) {
	q.filters = append(q.filters, func(row T) bool {
		got, ok := q.column(row, column)
		return ok && (got == want) == keep
	})
}

func (q *query[T]) run(rows []T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if q.match(row) {
			out = append(out, row)
		}
	}

	for i := len(q.orders) - 1; i >= 0; i-- {
		order := q.orders[i]
		sort.SliceStable(out, func(a, b int) bool {
			va, _ := q.column(out[a], order.Field)
			vb, _ := q.column(out[b], order.Field)
			if order.Desc {
				return less(vb, va)
			}
			return less(va, vb)
		})
	}

	if q.page != nil {
		if q.page.Offset > 0 {
			if q.page.Offset >= len(out) {
				return out[:0]
			}
			out = out[q.page.Offset:]
		}
		if q.page.Limit > 0 && q.page.Limit < len(out) {
			out = out[:q.page.Limit]
		}
	}
	return out
}

func (q *query[T]) match(row T) bool {
	for _, f := range q.filters {
		if !f(row) {
			return false
		}
	}
	return true
}

func less(a, b any) bool {
	switch va := a.(type) {
	case time.Time:
		vb, _ := b.(time.Time)
		return va.Before(vb)
	case string:
		vb, _ := b.(string)
		return va < vb
	case fmt.Stringer:
		vb, _ := b.(fmt.Stringer)
		return vb != nil && va.String() < vb.String()
	}
	return false
}
