package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posturemonitor/internal/models"
	"posturemonitor/internal/repository"
	"posturemonitor/internal/repository/csvlog"
	"posturemonitor/internal/service/pose"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time           { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type snapshotCall struct {
	name  string
	side  models.Side
	frame []byte
}

type recorder struct{ calls []snapshotCall }

func (r *recorder) RequestSnapshot(name string, side models.Side, at time.Time, frame []byte) {
	r.calls = append(r.calls, snapshotCall{name: name, side: side, frame: frame})
}

// flakyStore wraps a real store and fails on demand.
type flakyStore struct {
	repository.LogStore
	fail bool
}

func (s *flakyStore) Append(row models.LogRow) error {
	if s.fail {
		return fmt.Errorf("%w: disk full", repository.ErrStorageUnavailable)
	}
	return s.LogStore.Append(row)
}

func (s *flakyStore) Patch(row models.LogRow) error {
	if s.fail {
		return fmt.Errorf("%w: disk full", repository.ErrStorageUnavailable)
	}
	return s.LogStore.Patch(row)
}

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// jointsAt returns joints whose hip angle is exactly deg for multiples of 45.
func jointsAt(deg int) *models.Joints {
	knee := map[int]models.Joint{
		45:  {X: 10, Y: 10},
		90:  {X: 10, Y: 0},
		135: {X: 10, Y: -10},
		180: {X: 0, Y: -10},
	}[deg]
	return &models.Joints{
		Shoulder: models.Joint{X: 0, Y: 10},
		Hip:      models.Joint{X: 0, Y: 0},
		Knee:     knee,
	}
}

type fixture struct {
	clock  *fakeClock
	store  *csvlog.Store
	shots  *recorder
	events []models.Event
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := csvlog.New(t.TempDir(), "")
	require.NoError(t, err)

	f := &fixture{clock: &fakeClock{t: start}, store: store, shots: &recorder{}}
	f.engine = New(store, f.shots, 10*time.Second,
		WithClock(f.clock.Now),
		WithListener(func(ev models.Event) { f.events = append(f.events, ev) }),
	)
	return f
}

func (f *fixture) rows(t *testing.T) []models.LogRow {
	t.Helper()
	rows, err := f.store.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestOnSample_NoDetection(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)

	sample, err := f.engine.OnSample(models.Left, nil, []byte("frame"))
	require.NoError(t, err)
	assert.Nil(t, sample)
	assert.Empty(t, f.rows(t))
	assert.Empty(t, f.shots.calls)
}

func TestOnSample_GateClosedBeforeFirstInterval(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(5 * time.Second)

	sample, err := f.engine.OnSample(models.Left, jointsAt(90), nil)
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.False(t, sample.Logged)
	assert.Equal(t, "90-100", sample.AngleRange)
	assert.InDelta(t, 90, sample.Angle, 1e-9)
	assert.Empty(t, f.rows(t))
}

func TestOnSample_SameRangeAccumulates(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		f.clock.Advance(10 * time.Second)
		sample, err := f.engine.OnSample(models.Left, jointsAt(45), []byte{byte(i)})
		require.NoError(t, err)
		assert.True(t, sample.Logged)
	}

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.LogRow{
		Timestamp:     "2025-03-01_09-00-10",
		Image:         "2025-03-01_09-00-10_left.jpg",
		Side:          models.Left,
		HipAngle:      45,
		AngleRange:    "40-50",
		Frequency:     3,
		TotalDuration: 30,
	}, rows[0])

	require.Len(t, f.shots.calls, 3)
	assert.Equal(t, "2025-03-01_09-00-30_left.jpg", f.shots.calls[2].name)
	assert.Equal(t, []byte{2}, f.shots.calls[2].frame)

	require.Len(t, f.events, 3)
	assert.Equal(t, models.ActionAppend, f.events[0].Action)
	assert.Equal(t, models.ActionPatch, f.events[2].Action)
	assert.Equal(t, 3, f.events[2].Row.Frequency)
}

func TestOnSample_SubIntervalSamplesIgnored(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)
	_, err := f.engine.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		sample, err := f.engine.OnSample(models.Left, jointsAt(90), nil)
		require.NoError(t, err)
		assert.False(t, sample.Logged)
	}
	assert.Len(t, f.rows(t), 1)

	f.clock.Advance(5 * time.Second)
	_, err = f.engine.OnSample(models.Left, jointsAt(90), nil)
	require.NoError(t, err)
	assert.Len(t, f.rows(t), 2)
}

func TestOnSample_RangeChangeFreezesPreviousRow(t *testing.T) {
	f := newFixture(t)

	for _, deg := range []int{45, 45, 135, 135, 45} {
		f.clock.Advance(10 * time.Second)
		_, err := f.engine.OnSample(models.Left, jointsAt(deg), nil)
		require.NoError(t, err)
	}

	rows := f.rows(t)
	require.Len(t, rows, 3)
	assert.Equal(t, "40-50", rows[0].AngleRange)
	assert.Equal(t, 2, rows[0].Frequency)
	assert.Equal(t, 20, rows[0].TotalDuration)
	assert.Equal(t, "130-140", rows[1].AngleRange)
	assert.Equal(t, 2, rows[1].Frequency)
	assert.Equal(t, "40-50", rows[2].AngleRange)
	assert.Equal(t, 1, rows[2].Frequency)
	assert.Equal(t, "2025-03-01_09-00-50", rows[2].Timestamp)
}

func TestOnSample_SidesShareGateButNotRows(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)

	left, err := f.engine.OnSample(models.Left, jointsAt(90), nil)
	require.NoError(t, err)
	right, err := f.engine.OnSample(models.Right, jointsAt(90), nil)
	require.NoError(t, err)

	assert.True(t, left.Logged)
	assert.False(t, right.Logged, "the gate closes after the first logged sample")

	f.clock.Advance(10 * time.Second)
	_, err = f.engine.OnSample(models.Right, jointsAt(90), nil)
	require.NoError(t, err)

	rows := f.rows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Left, rows[0].Side)
	assert.Equal(t, models.Right, rows[1].Side)
	assert.Equal(t, 1, rows[1].Frequency, "right side starts its own row")
}

func TestOnSample_StorageErrorLeavesStateUnchanged(t *testing.T) {
	base, err := csvlog.New(t.TempDir(), "")
	require.NoError(t, err)
	store := &flakyStore{LogStore: base}
	clock := &fakeClock{t: start}
	shots := &recorder{}
	e := New(store, shots, 10*time.Second, WithClock(clock.Now))

	clock.Advance(10 * time.Second)
	_, err = e.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)

	store.fail = true
	clock.Advance(10 * time.Second)
	sample, err := e.OnSample(models.Left, jointsAt(45), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrStorageUnavailable))
	assert.False(t, sample.Logged)
	assert.Equal(t, 1, e.Current(models.Left).Row.Frequency)
	assert.Len(t, shots.calls, 1, "no snapshot for a failed log")

	// The gate stays open, so the next frame retries the same patch.
	store.fail = false
	clock.Advance(time.Second)
	sample, err = e.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)
	assert.True(t, sample.Logged)

	rows, err := base.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Frequency)
	assert.Equal(t, 20, rows[0].TotalDuration)
}

func TestOnSample_VanishedRowStartsNewRun(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)
	_, err := f.engine.OnSample(models.Right, jointsAt(45), nil)
	require.NoError(t, err)

	require.NoError(t, f.store.ReplaceAll(nil))

	f.clock.Advance(10 * time.Second)
	sample, err := f.engine.OnSample(models.Right, jointsAt(45), nil)
	require.NoError(t, err)
	assert.True(t, sample.Logged)

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-03-01_09-00-20", rows[0].Timestamp)
	assert.Equal(t, 1, rows[0].Frequency)
}

func TestOnSample_RestartStartsFreshRow(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{t: start}

	store, err := csvlog.New(dir, "")
	require.NoError(t, err)
	first := New(store, nil, 10*time.Second, WithClock(clock.Now))
	clock.Advance(10 * time.Second)
	_, err = first.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)

	reopened, err := csvlog.New(dir, "")
	require.NoError(t, err)
	second := New(reopened, nil, 10*time.Second, WithClock(clock.Now))
	clock.Advance(10 * time.Second)
	_, err = second.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)

	rows, err := reopened.ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestOnSample_InvalidSide(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.OnSample(models.Side(7), jointsAt(45), nil)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)
	_, err := f.engine.OnSample(models.Left, jointsAt(45), nil)
	require.NoError(t, err)
	require.True(t, f.engine.Current(models.Left).HasRow)

	f.engine.Reset()
	assert.False(t, f.engine.Current(models.Left).HasRow)
}

func TestOnFrame_TracksFacingSide(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)

	landmarks := &pose.Landmarks{
		Left: pose.BodySide{
			Shoulder: pose.Landmark{X: 0.5, Y: 0.2, Z: -0.3},
			Hip:      pose.Landmark{X: 0.5, Y: 0.5},
			Knee:     pose.Landmark{X: 0.8, Y: 0.5},
		},
		Right: pose.BodySide{
			Shoulder: pose.Landmark{X: 0.4, Y: 0.2, Z: 0.1},
			Hip:      pose.Landmark{X: 0.4, Y: 0.5},
			Knee:     pose.Landmark{X: 0.4, Y: 0.9},
		},
	}

	sample, err := f.engine.OnFrame(landmarks, 100, 100, []byte("frame"))
	require.NoError(t, err)
	require.NotNil(t, sample)
	assert.True(t, sample.Logged)
	assert.Equal(t, models.Left, sample.Side)
	assert.Equal(t, "90-100", sample.AngleRange)

	rows := f.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Left, rows[0].Side)
	assert.Equal(t, 90, rows[0].HipAngle)
}

func TestOnFrame_NoDetection(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(10 * time.Second)

	sample, err := f.engine.OnFrame(nil, 640, 480, nil)
	require.NoError(t, err)
	assert.Nil(t, sample)
	assert.Empty(t, f.rows(t))
}

func TestNew_RoundsIntervalToWholeSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{500 * time.Millisecond, time.Second},
		{1500 * time.Millisecond, 2 * time.Second},
		{10 * time.Second, 10 * time.Second},
		{0, 10 * time.Second},
		{-time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WholeSeconds(tt.in), "interval %v", tt.in)
	}
}

func TestOnSample_SubSecondIntervalStillCountsDuration(t *testing.T) {
	store, err := csvlog.New(t.TempDir(), "")
	require.NoError(t, err)
	clock := &fakeClock{t: start}
	eng := New(store, nil, 500*time.Millisecond, WithClock(clock.Now))
	assert.Equal(t, time.Second, eng.Interval())

	// Samples half a second apart only log once per second.
	for i := 0; i < 6; i++ {
		clock.Advance(500 * time.Millisecond)
		_, err := eng.OnSample(models.Left, jointsAt(45), nil)
		require.NoError(t, err)
	}

	rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "40-50", rows[0].AngleRange)
	assert.Equal(t, 3, rows[0].Frequency)
	assert.Equal(t, 3, rows[0].TotalDuration)
}
