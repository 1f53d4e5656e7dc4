// Package cache holds readers of settings files that are parsed once and
// reloaded when the file changes.
package cache

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Decoder parses file content into a value.
type Decoder[V any] func(content []byte) (V, error)

// YAMLDecoder decodes content over a copy of defaults, so keys missing in
// the file keep their default values.
func YAMLDecoder[V any](defaults V) Decoder[V] {
	return func(content []byte) (V, error) {
		data := defaults
		if err := yaml.Unmarshal(content, &data); err != nil {
			return defaults, err
		}
		return data, nil
	}
}

type record[V any] struct {
	Val       V
	Timestamp int64
}

// FileReader caches parsed files for ttl. A cached value is reparsed when the
// modification time of its file changes.
type FileReader[V any] struct {
	cache      *ttlcache.Cache[string, record[V]]
	loaderLock singleflight.Group
	decode     Decoder[V]
}

func NewFileReader[V any](ttl time.Duration, decode Decoder[V]) *FileReader[V] {
	cache := ttlcache.New(ttlcache.WithTTL[string, record[V]](ttl))
	go cache.Start()
	return &FileReader[V]{cache: cache, decode: decode}
}

func (r *FileReader[V]) load(filename string, timestamp int64) (V, error) {
	res, err, _ := r.loaderLock.Do(fmt.Sprintf("%s:%d", filename, timestamp), func() (interface{}, error) {
		content, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		data, err := r.decode(content)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		r.cache.Set(filename, record[V]{Val: data, Timestamp: timestamp}, ttlcache.DefaultTTL)
		return data, nil
	})
	var v V
	if err != nil {
		return v, err
	}
	return res.(V), nil
}

func (r *FileReader[V]) Get(filename string) (V, error) {
	fStat, err := os.Stat(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.cache.Delete(filename)
		}
		var v V
		return v, err
	}
	timestamp := fStat.ModTime().UnixNano()

	item := r.cache.Get(filename)
	if item == nil || item.Value().Timestamp != timestamp {
		return r.load(filename, timestamp)
	}
	return item.Value().Val, nil
}

func (r *FileReader[V]) Close() {
	r.cache.Stop()
	r.cache.DeleteAll()
}
