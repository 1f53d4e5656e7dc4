package domain

import (
	"fmt"
	"strings"
	"sync"
)

type NameList []string

func (n NameList) Has(name string) bool {
	for _, i := range n {
		if i == name {
			return true
		}
	}
	return false
}

// ContainedIn returns the first item found as a case-insensitive substring of value.
func (n NameList) ContainedIn(value string) (string, bool) {
	value = strings.ToLower(value)
	for _, i := range n {
		if i != "" && strings.Contains(value, strings.ToLower(i)) {
			return i, true
		}
	}
	return "", false
}

func (n NameList) Union(names NameList) NameList {
	res := append(NameList{}, n...)
	for _, item := range names {
		if !res.Has(item) {
			res = append(res, item)
		}
	}
	return res
}

// IDAllocator hands out layer ids that are unique within a session.
// A requested id that was already issued gets a numeric suffix.
type IDAllocator struct {
	mu   sync.Mutex
	used map[string]bool
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{used: make(map[string]bool)}
}

func (a *IDAllocator) Allocate(id string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	res := id
	for i := 2; a.used[res]; i++ {
		res = fmt.Sprintf("%s_%d", id, i)
	}
	a.used[res] = true
	return res
}
