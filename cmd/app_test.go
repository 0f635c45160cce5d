package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Doudousmyle42/mangatracker/internal/config"
	"github.com/Doudousmyle42/mangatracker/internal/providers"
)

func TestParseEntryID(t *testing.T) {
	id, err := parseEntryID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "x"} {
		_, err := parseEntryID(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewAppWiresLibrary(t *testing.T) {
	t.Setenv(config.EnvPrefix+"_HOME", t.TempDir())
	flagIgnoreConfig = true
	t.Cleanup(func() { flagIgnoreConfig = false })

	a, err := newApp(appOptions{
		Options:     config.Options{Database: filepath.Join(t.TempDir(), "lib.db")},
		withLibrary: true,
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NotNil(t, a.service)
	_, isScraper := a.extractor().(interface {
		ExtractHTML(string, string) providers.Result
	})
	assert.False(t, isScraper, "rendering is enabled by default, so the scraper is wrapped")

	entries, err := a.service.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)

	a.cfg.Render.Enabled = false
	assert.Same(t, a.scraper, a.extractor())
}
