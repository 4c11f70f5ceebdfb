package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	coreseq "medseq/internal/core/sequence"
)

// Document is a record in an in-memory collection.
type Document map[string]any

// Collections is an in-memory record store that implements coreseq.Scanner.
// Unknown collections read as empty.
type Collections struct {
	mu       sync.RWMutex
	docs     map[string][]Document
	failures map[string]error
}

// Ensure compile-time interface compliance.
var _ coreseq.Scanner = (*Collections)(nil)

// NewCollections creates an empty record store.
func NewCollections() *Collections {
	return &Collections{
		docs:     make(map[string][]Document),
		failures: make(map[string]error),
	}
}

// Insert appends documents to collection.
func (c *Collections) Insert(collection string, docs ...Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[collection] = append(c.docs[collection], docs...)
}

// Fail makes every scan of collection return err. A nil err clears the failure.
func (c *Collections) Fail(collection string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, collection)
		return
	}
	c.failures[collection] = err
}

// Scan implements coreseq.Scanner.
func (c *Collections) Scan(ctx context.Context, target coreseq.Target) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, &coreseq.ScanFailedError{Collection: target.Collection, Field: target.Field, Err: err}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.failures[target.Collection]; err != nil {
		return 0, &coreseq.ScanFailedError{Collection: target.Collection, Field: target.Field, Err: err}
	}

	var values []any
	for _, doc := range c.docs[target.Collection] {
		if v, ok := doc[target.Field]; ok && v != nil {
			values = append(values, v)
		}
	}

	if target.Prefix != "" {
		strs := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			}
		}
		return coreseq.MaxSuffix(strs, target.Prefix), nil
	}

	if len(values) == 0 {
		return 0, nil
	}
	sort.SliceStable(values, func(i, j int) bool { return greater(values[i], values[j]) })
	return coreseq.ParseNumeric(fmt.Sprint(values[0])), nil
}

// greater orders numbers numerically, strings lexically, and numbers before strings.
func greater(a, b any) bool {
	af, aNum := number(a)
	bf, bNum := number(b)
	switch {
	case aNum && bNum:
		return af > bf
	case aNum != bNum:
		return aNum
	default:
		return fmt.Sprint(a) > fmt.Sprint(b)
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
