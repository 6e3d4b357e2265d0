package db

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/movement.report/internal/config"
	"github.com/banshee-data/movement.report/internal/monitoring"
	"github.com/banshee-data/movement.report/internal/rilsa"
	"github.com/banshee-data/movement.report/internal/testutil"
	"github.com/banshee-data/movement.report/internal/timeutil"
	"github.com/banshee-data/movement.report/internal/traffic"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDataset(t *testing.T, db *DB, trajectories ...traffic.Trajectory) string {
	t.Helper()
	ds, err := db.CreateDataset("test")
	require.NoError(t, err)
	require.NoError(t, db.ReplaceZones(ds.ID, testutil.QuadrantZones()))
	require.NoError(t, db.InsertTrajectories(ds.ID, trajectories))
	return ds.ID
}

func ptr[T any](v T) *T { return &v }

func TestMigrationsSeedDefaultRules(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	table, err := db.LoadMovementRules()
	require.NoError(t, err)
	if diff := cmp.Diff(rilsa.MustDefaultTable().Rules(), table.Rules()); diff != "" {
		t.Errorf("seeded rules differ (-want +got):\n%s", diff)
	}

	// reopening an up-to-date database is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDown())
	_, err := db.LoadMovementRules()
	assert.ErrorIs(t, err, rilsa.ErrInvalidTable)

	require.NoError(t, db.MigrateTo(2))
	_, err = db.LoadMovementRules()
	assert.NoError(t, err)
}

func TestRunMigrateCommand(t *testing.T) {
	db := newTestDB(t)

	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand(&out, db, []string{"status"}))
	assert.Contains(t, out.String(), "Current version: 2")

	out.Reset()
	assert.Error(t, RunMigrateCommand(&out, db, []string{"sideways"}))
	assert.Contains(t, out.String(), "Usage:")

	assert.Error(t, RunMigrateCommand(&out, db, []string{"version", "two"}))
	assert.Error(t, RunMigrateCommand(&out, db, nil))
}

func TestDatasets(t *testing.T) {
	db := newTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db.SetClock(clock)

	a, err := db.CreateDataset("morning")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	b, err := db.CreateDataset("evening")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := db.GetDataset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "morning", got.Name)
	assert.True(t, got.CreatedAt.Equal(clock.Now().Add(-time.Hour)))

	list, err := db.ListDatasets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	require.NoError(t, db.DeleteDataset(a.ID))
	_, err = db.GetDataset(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteDataset(a.ID), ErrNotFound)
}

func TestTrajectoriesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := []traffic.Trajectory{
		testutil.Movement("a", "car", rilsa.North, rilsa.South, 0),
		testutil.Movement("b", "bicycle", rilsa.East, rilsa.West, 40),
	}
	id := seedDataset(t, db, want[1], want[0])

	got, err := db.LoadTrajectories(id)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trajectories differ (-want +got):\n%s", diff)
	}

	// trajectories are insert-only
	err = db.InsertTrajectories(id, want[:1])
	assert.Error(t, err)

	err = db.InsertTrajectories("missing", want[:1])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestZonesReplaceKeepsOrder(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db)

	zones := testutil.QuadrantZones()
	zones[0], zones[3] = zones[3], zones[0]
	require.NoError(t, db.ReplaceZones(id, zones))

	got, err := db.LoadZones(id)
	require.NoError(t, err)
	if diff := cmp.Diff(zones, got); diff != "" {
		t.Errorf("zones differ (-want +got):\n%s", diff)
	}

	bad := testutil.QuadrantZones()
	bad[0].Polygon = bad[0].Polygon[:2]
	err = db.ReplaceZones(id, bad)
	assert.ErrorIs(t, err, traffic.ErrConfiguration)

	got, err = db.LoadZones(id)
	require.NoError(t, err)
	assert.Len(t, got, 4, "rejected set must not replace the stored one")
}

func TestCorrectionsLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db.SetClock(clock)
	id := seedDataset(t, db,
		testutil.Movement("a", "car", rilsa.North, rilsa.South, 0),
		testutil.Movement("b", "car", rilsa.North, rilsa.South, 0),
	)

	require.NoError(t, db.UpsertCorrection(id, traffic.Correction{TrackID: "b", Discard: true}))
	clock.Advance(time.Second)
	require.NoError(t, db.UpsertCorrection(id, traffic.Correction{TrackID: "a", NewClass: ptr("bus")}))
	clock.Advance(time.Second)
	require.NoError(t, db.UpsertCorrection(id, traffic.Correction{
		TrackID: "b", NewDest: ptr(rilsa.East), HideInPDF: true,
	}))

	got, err := db.LoadCorrections(id)
	require.NoError(t, err)
	want := []traffic.Correction{
		{TrackID: "a", NewClass: ptr("bus")},
		{TrackID: "b", NewDest: ptr(rilsa.East), HideInPDF: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("corrections differ (-want +got):\n%s", diff)
	}

	existed, err := db.DeleteCorrection(id, "a")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = db.DeleteCorrection(id, "a")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestCorrectionForUnknownTrack(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db, testutil.Movement("a", "car", rilsa.North, rilsa.South, 0))

	err := db.UpsertCorrection(id, traffic.Correction{TrackID: "ghost", Discard: true})
	assert.ErrorIs(t, err, traffic.ErrCorrectionConflict)

	err = db.UpsertCorrection(id, traffic.Correction{TrackID: "a", NewOrigin: ptr(rilsa.Cardinal("Z"))})
	assert.ErrorIs(t, err, traffic.ErrConfiguration)

	err = db.UpsertCorrection("missing", traffic.Correction{TrackID: "a"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettingsOverrideDefaults(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db)

	stored, err := db.LoadSettings(id)
	require.NoError(t, err)
	assert.Equal(t, config.EmptyAnalysisConfig(), stored)

	require.NoError(t, db.PutSettings(id, &config.AnalysisConfig{IntervalMinutes: ptr(60)}))
	stored, err = db.LoadSettings(id)
	require.NoError(t, err)
	assert.Equal(t, 60, stored.GetIntervalMinutes())
	assert.Nil(t, stored.MinLengthM)

	err = db.PutSettings(id, &config.AnalysisConfig{IntervalMinutes: ptr(7)})
	assert.ErrorIs(t, err, traffic.ErrConfiguration)
}

func TestForbiddenMovements(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db)

	require.NoError(t, db.ReplaceForbiddenMovements(id, traffic.ForbiddenMovements{5: "a", 8: "b"}))
	require.NoError(t, db.ReplaceForbiddenMovements(id, traffic.ForbiddenMovements{93: "c"}))

	got, err := db.LoadForbiddenMovements(id)
	require.NoError(t, err)
	assert.Equal(t, traffic.ForbiddenMovements{93: "c"}, got)

	err = db.ReplaceForbiddenMovements(id, traffic.ForbiddenMovements{42: "nope"})
	assert.ErrorIs(t, err, traffic.ErrConfiguration)
}

func TestLoadSnapshot(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db,
		testutil.Movement("a", "car", rilsa.North, rilsa.East, 0),
		testutil.Movement("b", "car", rilsa.North, rilsa.East, 0),
		testutil.Movement("c", "bus", rilsa.South, rilsa.North, 0),
	)
	require.NoError(t, db.ReplaceForbiddenMovements(id, traffic.ForbiddenMovements{5: "no left"}))
	require.NoError(t, db.UpsertCorrection(id, traffic.Correction{TrackID: "b", Discard: true}))
	require.NoError(t, db.PutSettings(id, &config.AnalysisConfig{IntervalMinutes: ptr(60)}))

	defaults := &config.AnalysisConfig{IntervalMinutes: ptr(30), ConflictTimeout: ptr("2s")}
	snap, cfg, err := db.LoadSnapshot(id, defaults)
	require.NoError(t, err)
	assert.Equal(t, 60, snap.Settings().IntervalMinutes)
	assert.Equal(t, 2*time.Second, cfg.GetConflictTimeout())

	assert.Equal(t, []traffic.ViolationRecord{{Code: 5, Description: "no left", Count: 1}},
		traffic.ComputeViolations(snap))
	qc := traffic.ComputeQCSummary(snap)
	assert.Equal(t, 3, qc.TotalTracksRaw)
	assert.Equal(t, 2, qc.CountedTracks)

	_, _, err = db.LoadSnapshot("missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSnapshotWithoutZones(t *testing.T) {
	db := newTestDB(t)
	ds, err := db.CreateDataset("bare")
	require.NoError(t, err)

	_, _, err = db.LoadSnapshot(ds.ID, nil)
	assert.ErrorIs(t, err, traffic.ErrConfiguration)
}

func TestImportDataset(t *testing.T) {
	db := newTestDB(t)

	f := &DatasetFile{
		Name:         "imported",
		Trajectories: []traffic.Trajectory{testutil.Movement("a", "car", rilsa.North, rilsa.East, 0)},
		Zones:        testutil.QuadrantZones(),
		Corrections:  []traffic.Correction{{TrackID: "a", HideInPDF: true}},
		Settings:     &config.AnalysisConfig{TTCThresholdS: ptr(2.0)},
		Forbidden:    "5: no left turn",
	}
	ds, err := db.ImportDataset(f)
	require.NoError(t, err)

	snap, _, err := db.LoadSnapshot(ds.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.Settings().TTCThresholdS)
	assert.Equal(t, 1, traffic.ComputeQCSummary(snap).HiddenTracks)
	assert.Len(t, traffic.ComputeViolations(snap), 1)
}

func TestImportDatasetRollsBack(t *testing.T) {
	db := newTestDB(t)

	f := &DatasetFile{
		Name:         "broken",
		Trajectories: []traffic.Trajectory{testutil.Movement("a", "car", rilsa.North, rilsa.East, 0)},
		Zones:        testutil.QuadrantZones(),
		Corrections:  []traffic.Correction{{TrackID: "ghost"}},
	}
	_, err := db.ImportDataset(f)
	assert.ErrorIs(t, err, traffic.ErrCorrectionConflict)

	list, err := db.ListDatasets()
	require.NoError(t, err)
	assert.Empty(t, list)

	f.Corrections = nil
	f.Forbidden = "999:bogus"
	_, err = db.ImportDataset(f)
	assert.ErrorIs(t, err, traffic.ErrConfiguration)
}

func TestImportDatasetRejectsMalformedTrajectories(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name  string
		track traffic.Trajectory
	}{
		{"no positions", traffic.Trajectory{TrackID: "empty", Class: "car", FrameEntry: 10, FrameExit: 2}},
		{"exit before entry", func() traffic.Trajectory {
			tr := testutil.Movement("backwards", "car", rilsa.North, rilsa.South, 0)
			tr.FrameEntry, tr.FrameExit = tr.FrameExit, tr.FrameEntry
			return tr
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &DatasetFile{
				Name: "malformed",
				Trajectories: []traffic.Trajectory{
					testutil.Movement("ok", "car", rilsa.North, rilsa.South, 0),
					tt.track,
				},
				Zones: testutil.QuadrantZones(),
			}
			_, err := db.ImportDataset(f)
			assert.ErrorIs(t, err, traffic.ErrInvalidTrajectory)

			list, err := db.ListDatasets()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestInsertTrajectoriesValidates(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db, testutil.Movement("a", "car", rilsa.North, rilsa.South, 0))

	err := db.InsertTrajectories(id, []traffic.Trajectory{{TrackID: "empty", Class: "car"}})
	assert.ErrorIs(t, err, traffic.ErrInvalidTrajectory)

	stored, err := db.LoadTrajectories(id)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	_, _, err = db.LoadSnapshot(id, nil)
	assert.NoError(t, err)
}

func TestZonesStoredAsGeoJSON(t *testing.T) {
	db := newTestDB(t)
	id := seedDataset(t, db)

	var raw string
	require.NoError(t, db.QueryRow(`SELECT polygon_json FROM access_zones WHERE dataset_id = ? AND zone_id = 'north'`, id).Scan(&raw))
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[-20,50],[20,50],[20,100],[-20,100],[-20,50]]]}`, raw)

	zones, err := db.LoadZones(id)
	require.NoError(t, err)
	if diff := cmp.Diff(testutil.QuadrantZones(), zones); diff != "" {
		t.Errorf("zones differ after round trip (-want +got):\n%s", diff)
	}
}

func TestReadDatasetFile(t *testing.T) {
	f, err := ReadDatasetFile(strings.NewReader(`{
		"name": "site",
		"zones": [{"id": "north", "cardinal": "N", "polygon": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}],
		"trajectories": [{"track_id": "t", "class": "car", "frame_entry": 0, "frame_exit": 1,
			"positions": [{"frame": 0, "x": 0.5, "y": 0.5, "timestamp": "2024-03-01T08:00:00Z"}]}],
		"forbidden": "5:no left"
	}`))
	require.NoError(t, err)
	assert.Equal(t, rilsa.North, f.Zones[0].Cardinal)
	assert.Len(t, f.Zones[0].Polygon, 3)
	assert.Equal(t, 0.5, f.Trajectories[0].Positions[0].X)

	_, err = ReadDatasetFile(strings.NewReader(`{"nmae": "typo"}`))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
