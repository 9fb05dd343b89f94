// Package connection builds Relay style connection types over the graphql
// package. A resolver returning a page of hits gets totalCount, edges with
// offset cursors and pageInfo without further code.
package connection

import (
	"fmt"
	"math"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hanpama/graphlib/graphql"
)

// Page is a window of a larger result set.
type Page interface {
	// Window returns the size of the full set, the offset of the first hit
	// and the hits themselves.
	Window() (total, start int, hits []any)
}

// Result is the page a connection field resolver returns, by value or by
// pointer.
type Result[T any] struct {
	Total int
	Start int
	Hits  []T
}

func (r Result[T]) Window() (int, int, []any) {
	hits := make([]any, len(r.Hits))
	for i, h := range r.Hits {
		hits[i] = h
	}
	return r.Total, r.Start, hits
}

type edge struct {
	node   any
	offset int
}

type pageInfo struct {
	start, end int
	hasNext    bool
}

// Registry creates connection types and remembers them by base type name so
// that every connection over the same type shares one definition. The mutex
// guards the maps only; concurrent first requests for one name share a
// single build through the singleflight group.
type Registry struct {
	builder *graphql.Builder

	mu          sync.Mutex
	group       singleflight.Group
	pageInfo    *graphql.Object
	connections map[string]*graphql.Object
}

func NewRegistry(b *graphql.Builder) *Registry {
	return &Registry{builder: b, connections: make(map[string]*graphql.Object)}
}

// PageInfoType returns the shared PageInfo type.
func (r *Registry) PageInfoType() (*graphql.Object, error) {
	r.mu.Lock()
	t := r.pageInfo
	r.mu.Unlock()
	if t != nil {
		return t, nil
	}
	v, err, _ := r.group.Do("PageInfo", func() (any, error) {
		r.mu.Lock()
		t := r.pageInfo
		r.mu.Unlock()
		if t != nil {
			return t, nil
		}
		t, err := newPageInfoType(r.builder)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.pageInfo = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graphql.Object), nil
}

func newPageInfoType(b *graphql.Builder) (*graphql.Object, error) {
	return b.NewObject(&graphql.Object{
		Name: "PageInfo",
		Fields: graphql.Fields{
			{
				Name: "startCursor",
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return EncodeCursor(p.Source.(pageInfo).start), nil
				},
			},
			{
				Name: "endCursor",
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return EncodeCursor(p.Source.(pageInfo).end), nil
				},
			},
			{
				Name: "hasNext",
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(pageInfo).hasNext, nil
				},
			},
		},
	})
}

// ConnectionType returns the <Name>Connection type for base, creating it and
// its <Name>Edge type on first use.
func (r *Registry) ConnectionType(base graphql.Named) (*graphql.Object, error) {
	if base == nil || base.TypeName() == "" {
		return nil, fmt.Errorf("connection: base type must be named")
	}
	name := base.TypeName()
	if t, ok := r.lookup(name); ok {
		return t, nil
	}

	v, err, _ := r.group.Do(name+"Connection", func() (any, error) {
		if t, ok := r.lookup(name); ok {
			return t, nil
		}
		t, err := r.newConnection(base)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.connections[name] = t
		r.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graphql.Object), nil
}

func (r *Registry) lookup(name string) (*graphql.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.connections[name]
	return t, ok
}

func (r *Registry) newConnection(base graphql.Named) (*graphql.Object, error) {
	info, err := r.PageInfoType()
	if err != nil {
		return nil, err
	}
	edgeType, err := r.builder.NewObject(&graphql.Object{
		Name: base.TypeName() + "Edge",
		Fields: graphql.Fields{
			{
				Name: "node",
				Type: graphql.NewNonNull(base),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(edge).node, nil
				},
			},
			{
				Name: "cursor",
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return EncodeCursor(p.Source.(edge).offset), nil
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return r.builder.NewObject(&graphql.Object{
		Name: base.TypeName() + "Connection",
		Fields: graphql.Fields{
			{
				Name: "totalCount",
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					total, _, _, err := window(p.Source)
					return total, err
				},
			},
			{
				Name: "edges",
				Type: graphql.NewList(edgeType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					_, start, hits, err := window(p.Source)
					if err != nil {
						return nil, err
					}
					edges := make([]any, len(hits))
					for i, hit := range hits {
						edges[i] = edge{node: hit, offset: start + i}
					}
					return edges, nil
				},
			},
			{
				Name: "pageInfo",
				Type: info,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					total, start, hits, err := window(p.Source)
					if err != nil {
						return nil, err
					}
					return newPageInfo(total, start, len(hits)), nil
				},
			},
		},
	})
}

func newPageInfo(total, start, count int) pageInfo {
	return pageInfo{
		start:   start,
		end:     start + max(count-1, 0),
		hasNext: start+count < total,
	}
}

// window reads a page from a resolver result. Besides Page values it accepts
// maps with total, start and hits keys, as decoded JSON produces them.
func window(source any) (total, start int, hits []any, err error) {
	switch v := source.(type) {
	case Page:
		total, start, hits = v.Window()
		return total, start, hits, nil
	case map[string]any:
		if total, err = intMember(v, "total"); err != nil {
			return 0, 0, nil, err
		}
		if start, err = intMember(v, "start"); err != nil {
			return 0, 0, nil, err
		}
		if hits, err = sliceMember(v, "hits"); err != nil {
			return 0, 0, nil, err
		}
		return total, start, hits, nil
	}
	return 0, 0, nil, fmt.Errorf("connection: expected a page result, got %T", source)
}

// intMember reads a non-negative integer of any integer kind, or a float
// without fraction. A missing member is zero.
func intMember(m map[string]any, key string) (int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	v := reflect.ValueOf(raw)
	var n int64
	switch {
	case v.CanInt():
		n = v.Int()
	case v.CanUint() && v.Uint() <= math.MaxInt64:
		n = int64(v.Uint())
	case v.CanFloat() && v.Float() == math.Trunc(v.Float()) && math.Abs(v.Float()) < 1<<53:
		n = int64(v.Float())
	default:
		return 0, fmt.Errorf("connection: page %s must be an integer, got %T", key, raw)
	}
	if n < 0 || n > math.MaxInt {
		return 0, fmt.Errorf("connection: page %s out of range: %d", key, n)
	}
	return int(n), nil
}

func sliceMember(m map[string]any, key string) ([]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	if items, ok := raw.([]any); ok {
		return items, nil
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("connection: page %s must be a list, got %T", key, raw)
	}
	items := make([]any, v.Len())
	for i := range items {
		items[i] = v.Index(i).Interface()
	}
	return items, nil
}

// Args returns the forward pagination arguments first and after.
func Args() graphql.Args {
	return graphql.Args{
		"first": graphql.Int,
		"after": graphql.String,
	}
}

// Window converts the first and after arguments into the [start, end) bounds
// of a set of total items. Cursors past the end give an empty window.
func Window(args map[string]any, total int) (start, end int, err error) {
	total = max(total, 0)
	if after, ok := args["after"].(string); ok && after != "" {
		offset, err := DecodeOffset(after)
		if err != nil {
			return 0, 0, err
		}
		if offset < total {
			start = offset + 1
		} else {
			start = total
		}
	}
	end = total
	if first, ok := args["first"].(int); ok {
		if first < 0 {
			return 0, 0, fmt.Errorf("connection: first must not be negative, got %d", first)
		}
		end = start + min(first, total-start)
	}
	return start, end, nil
}
