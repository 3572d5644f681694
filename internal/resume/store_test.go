package resume

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fixture = `{
  "meta": {
    "version": "2.1",
    "last_updated": "2024-05-01"
  },
  "personal": {
    "name": "Jane <Doe> & Co, Zürich"
  },
  "experience": [
    {
      "id": "exp_001",
      "company": "Acme",
      "location": "Remote",
      "positions": [
        {
          "title": "VP, Marketing",
          "start_date": "2019-01",
          "end_date": null,
          "current": true,
          "achievements": [
            {
              "category": "Key Achievements",
              "items": [
                {
                  "text": "Led team of 5",
                  "tags": [
                    "leadership",
                    "brand"
                  ],
                  "context": "internal"
                },
                "Legacy line inside a group"
              ]
            }
          ]
        },
        {
          "title": "Director",
          "start_date": "2015-03",
          "end_date": "2018-12",
          "achievements": [
            "Built the analytics practice",
            "Hired 4 analysts"
          ]
        }
      ]
    }
  ],
  "skills": {
    "z_last": 1.50,
    "a_first": []
  }
}
`

var fixedNow = time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := NewStore(path, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestStoreRoundTripIsByteStable(t *testing.T) {
	s := newTestStore(t, fixture)

	res, err := s.Load()
	require.NoError(t, err)

	backup, err := s.Save(res)
	require.NoError(t, err)

	out, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, fixture, string(out))

	assert.Equal(t, "resume_backup_20240501_101500.json", filepath.Base(backup))
	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(saved))
}

func TestStoreLoadMapsKnownFields(t *testing.T) {
	s := newTestStore(t, fixture)

	res, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, "2.1", res.Version())
	assert.Equal(t, "2024-05-01", res.LastUpdated())
	require.Len(t, res.Experience, 1)

	acme := res.Experience[0]
	assert.Equal(t, "exp_001", acme.ID)
	assert.Equal(t, "Acme", acme.Company)
	require.Len(t, acme.Positions, 2)

	vp := acme.Positions[0]
	assert.Equal(t, "", vp.EndDate)
	assert.False(t, vp.IsLegacy())
	require.Len(t, vp.Groups, 1)
	require.Len(t, vp.Groups[0].Items, 2)

	first, ok := vp.Groups[0].Items[0].(*Achievement)
	require.True(t, ok)
	assert.Equal(t, []string{"leadership", "brand"}, first.Tags)
	context, ok := first.Extra("context")
	require.True(t, ok)
	assert.JSONEq(t, `"internal"`, string(context))

	assert.Equal(t, LegacyText("Legacy line inside a group"), vp.Groups[0].Items[1])

	director := acme.Positions[1]
	assert.True(t, director.IsLegacy())
	assert.Equal(t, []LegacyText{"Built the analytics practice", "Hired 4 analysts"}, director.Legacy)
	assert.Len(t, director.Items(), 2)
}

func TestStoreSaveStampsLastUpdated(t *testing.T) {
	s := newTestStore(t, `{"meta": {"version": "1"}, "experience": []}`)
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	res, err := s.Load()
	require.NoError(t, err)
	_, err = s.Save(res)
	require.NoError(t, err)

	reloaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", reloaded.LastUpdated())
	assert.Equal(t, "1", reloaded.Version())
}

func TestStoreBackupNameCollision(t *testing.T) {
	s := newTestStore(t, fixture)

	first, err := s.Backup()
	require.NoError(t, err)
	second, err := s.Backup()
	require.NoError(t, err)

	assert.Equal(t, "resume_backup_20240501_101500.json", filepath.Base(first))
	assert.Equal(t, "resume_backup_20240501_101500_1.json", filepath.Base(second))
}

func TestStoreSaveWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.json")
	s := NewStore(path, nil)

	backup, err := s.Save(&Resume{})
	require.NoError(t, err)
	assert.Empty(t, backup)

	res, err := s.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, res.LastUpdated())
}

func TestStoreLoadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{name: "not json", content: `{"experience": [`},
		{name: "not an object", content: `[1, 2]`},
		{name: "experience not array", content: `{"experience": {}}`},
		{name: "mixed achievements", content: `{"experience": [{"id": "e", "positions": [{"title": "t", "achievements": ["a", {"category": "c", "items": []}]}]}]}`},
		{name: "numeric item", content: `{"experience": [{"id": "e", "positions": [{"title": "t", "achievements": [{"category": "c", "items": [42]}]}]}]}`},
		{name: "tags not strings", content: `{"experience": [{"id": "e", "positions": [{"title": "t", "achievements": [{"category": "c", "items": [{"text": "x", "tags": [1]}]}]}]}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t, tc.content)

			_, err := s.Load()
			require.Error(t, err)

			var loadErr *LoadError
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"), nil)

	_, err := s.Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
