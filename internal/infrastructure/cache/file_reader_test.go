package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	Name  string `yaml:"name"`
	Zoom  int    `yaml:"zoom"`
	Debug bool   `yaml:"debug"`
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "viewer.yml")
	require.NoError(t, os.WriteFile(filename, []byte("name: first\n"), 0644))

	r := NewFileReader(time.Minute, YAMLDecoder(settings{Zoom: 9}))
	defer r.Close()

	v, err := r.Get(filename)
	require.NoError(t, err)
	assert.Equal(t, settings{Name: "first", Zoom: 9}, v)

	require.NoError(t, os.WriteFile(filename, []byte("name: second\nzoom: 12\n"), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filename, later, later))

	v, err = r.Get(filename)
	require.NoError(t, err)
	assert.Equal(t, settings{Name: "second", Zoom: 12}, v)
}

func TestFileReaderErrors(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(time.Minute, YAMLDecoder(settings{}))
	defer r.Close()

	_, err := r.Get(filepath.Join(dir, "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	invalid := filepath.Join(dir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("zoom: [1, 2"), 0644))
	_, err = r.Get(invalid)
	assert.Error(t, err)
}
