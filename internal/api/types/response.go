// internal/api/types/response.go
package types

// ListResponse wraps a list of T with its size.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
	Limit int `json:"limit,omitempty"`
}

// NewListResponse never encodes a nil slice, so empty lists are [] not null.
func NewListResponse[T any](data []T, limit int) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{Data: data, Count: len(data), Limit: limit}
}
