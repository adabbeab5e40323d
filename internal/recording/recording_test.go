package recording

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/sensor"
	"github.com/banshee-data/depthdust/internal/testutil"
	"github.com/banshee-data/depthdust/internal/timeutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "recordings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenStore_Migrations(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestStore_Sessions(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestSession()
	assert.ErrorIs(t, err, ErrNoSession)

	calib := projection.Rectified(8, 6, 5)
	t0 := time.Unix(1700000000, 0)
	first, err := s.CreateSession(calib, 60, "first", t0)
	require.NoError(t, err)
	second, err := s.CreateSession(calib, 30, "second", t0.Add(time.Minute))
	require.NoError(t, err)

	latest, err := s.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 30, latest.FPS)
	assert.Equal(t, calib, latest.Calibration)

	all, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{second.ID, first.ID}, []string{all[0].ID, all[1].ID})

	got, err := s.Session(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = s.Session("missing")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.CreateSession(projection.Intrinsics{}, 60, "", t0)
	assert.ErrorIs(t, err, projection.ErrInvalidIntrinsics)
}

func TestStore_Frames(t *testing.T) {
	s := openTestStore(t)
	info, err := s.CreateSession(projection.Rectified(8, 6, 5), 60, "", time.Unix(0, 0))
	require.NoError(t, err)

	at := time.Unix(10, 500)
	require.NoError(t, s.AppendFrame(info.ID, 0, at, testutil.RampFrame(8, 6, 100)))
	require.NoError(t, s.AppendFrame(info.ID, 1, at, testutil.RampFrame(8, 6, 200)))
	assert.Error(t, s.AppendFrame(info.ID, 1, at, testutil.RampFrame(8, 6, 0)), "duplicate seq")

	dst := depth.NewFrame(8, 6)
	captured, err := s.ReadFrame(info.ID, 1, dst)
	require.NoError(t, err)
	assert.True(t, captured.Equal(at))
	assert.Equal(t, uint16(200+47), dst.At(7, 5))

	_, err = s.ReadFrame(info.ID, 2, dst)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = s.ReadFrame(info.ID, 0, depth.NewFrame(4, 4))
	assert.Error(t, err)

	got, err := s.Session(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Frames)

	require.NoError(t, s.DeleteSession(info.ID))
	_, err = s.ReadFrame(info.ID, 0, dst)
	assert.ErrorIs(t, err, sql.ErrNoRows, "frames are deleted with their session")
	assert.ErrorIs(t, s.DeleteSession(info.ID), ErrNoSession)
}

func TestCodec(t *testing.T) {
	f := testutil.RampFrame(5, 4, 1000)
	blob, err := EncodeFrame(f)
	require.NoError(t, err)

	dst := depth.NewFrame(5, 4)
	require.NoError(t, DecodeFrameInto(dst, blob))
	assert.Equal(t, f, dst)

	assert.Error(t, DecodeFrameInto(depth.NewFrame(6, 4), blob), "short blob")
	assert.Error(t, DecodeFrameInto(depth.NewFrame(4, 4), blob), "trailing samples")
	assert.Error(t, DecodeFrameInto(dst, []byte("not gzip")))

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte{1, 2, 3})
	require.NoError(t, gz.Close())
	assert.Error(t, DecodeFrameInto(dst, buf.Bytes()), "odd byte count")
}

func TestRecorder_Replay(t *testing.T) {
	store := openTestStore(t)
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	rec := NewRecorder(store, clock, 60, "test")
	assert.Empty(t, rec.SessionID())

	calib := projection.Rectified(8, 6, 5)
	for i := 0; i < 3; i++ {
		require.NoError(t, rec.WriteFrame(testutil.RampFrame(8, 6, uint16(i*100)), calib))
		clock.Advance(time.Second / 60)
	}
	assert.Equal(t, 3, rec.Frames())
	id := rec.SessionID()
	require.NotEmpty(t, id)

	cfg := sensor.DefaultSessionConfig()
	cfg.Width, cfg.Height = 8, 6
	s, report := sensor.Open(NewPlayer(store, "", false), cfg)
	defer s.Close()
	require.True(t, report.OK(), "%v", report.Err())
	assert.Equal(t, calib, s.Calibration())

	for i := 0; i < 3; i++ {
		require.True(t, s.Grab(), "frame %d", i)
		assert.Equal(t, uint16(i*100), s.DepthFrame().At(0, 0))
	}
	assert.False(t, s.Grab())
	assert.False(t, s.IsStreaming(), "replay ends the stream")
}

func TestRecorder_NewSessionOnCalibrationChange(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store, timeutil.NewMockClock(time.Unix(0, 0)), 60, "")
	rec.MaxFrames = 3

	require.NoError(t, rec.WriteFrame(testutil.RampFrame(8, 6, 0), projection.Rectified(8, 6, 5)))
	first := rec.SessionID()
	require.NoError(t, rec.WriteFrame(testutil.RampFrame(4, 4, 0), projection.Rectified(4, 4, 3)))
	assert.NotEqual(t, first, rec.SessionID())
	require.NoError(t, rec.WriteFrame(testutil.RampFrame(4, 4, 0), projection.Rectified(4, 4, 3)))
	require.NoError(t, rec.WriteFrame(testutil.RampFrame(4, 4, 0), projection.Rectified(4, 4, 3)))
	assert.Equal(t, 3, rec.Frames())

	all, err := store.Sessions()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Past the limit frames are ignored before the calibration is looked at.
	assert.NoError(t, rec.WriteFrame(testutil.RampFrame(4, 4, 0), projection.Intrinsics{}))
	assert.Equal(t, 3, rec.Frames())
}

func TestPlayer_Loop(t *testing.T) {
	store := openTestStore(t)
	calib := projection.Rectified(4, 4, 3)
	info, err := store.CreateSession(calib, 60, "", time.Unix(0, 0))
	require.NoError(t, err)
	require.NoError(t, store.AppendFrame(info.ID, 0, time.Unix(0, 0), testutil.RampFrame(4, 4, 1)))
	require.NoError(t, store.AppendFrame(info.ID, 1, time.Unix(0, 0), testutil.RampFrame(4, 4, 2)))

	p := NewPlayer(store, info.ID, true)
	require.NoError(t, p.ProbeConfiguration())
	require.NoError(t, p.StartCapture())
	dst := depth.NewFrame(4, 4)
	var seen []uint16
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Grab())
		require.NoError(t, p.ReadDepth(dst))
		seen = append(seen, dst.At(0, 0))
	}
	assert.Equal(t, []uint16{1, 2, 1, 2, 1}, seen)
	assert.Equal(t, 2, p.Loops())
}

func TestPlayer_SkipsMissingFrame(t *testing.T) {
	store := openTestStore(t)
	calib := projection.Rectified(4, 4, 3)
	info, err := store.CreateSession(calib, 60, "", time.Unix(0, 0))
	require.NoError(t, err)
	for _, seq := range []int{0, 1, 3} {
		require.NoError(t, store.AppendFrame(info.ID, seq, time.Unix(0, 0), testutil.RampFrame(4, 4, uint16(seq+1))))
	}

	s, report := sensor.Open(NewPlayer(store, info.ID, false), sensor.SessionConfig{
		Width: 4, Height: 4, FPS: 60, Streams: []sensor.StreamKind{sensor.StreamDepth},
	})
	defer s.Close()
	require.True(t, report.OK(), "%v", report.Err())

	end, err := store.SeqEnd(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, end)

	var grabbed []bool
	var seen []uint16
	for i := 0; i < 10 && s.IsStreaming(); i++ {
		ok := s.Grab()
		grabbed = append(grabbed, ok)
		if ok {
			seen = append(seen, s.DepthFrame().At(0, 0))
		}
	}
	assert.Equal(t, []bool{true, true, false, true, false}, grabbed,
		"the gap fails one grab, replay continues, then the stream ends")
	assert.Equal(t, []uint16{1, 2, 4}, seen)
	assert.False(t, s.IsStreaming())
	assert.Equal(t, uint64(2), s.GrabErrors())
}

func TestPlayer_Setup(t *testing.T) {
	store := openTestStore(t)

	s, report := sensor.Open(NewPlayer(store, "", false), sensor.DefaultSessionConfig())
	defer s.Close()
	assert.True(t, report.Failed(sensor.StepProbe))
	assert.ErrorIs(t, report.Err(), ErrNoSession)
	assert.False(t, s.IsStreaming())

	info, err := store.CreateSession(projection.Rectified(4, 4, 3), 60, "", time.Unix(0, 0))
	require.NoError(t, err)
	p := NewPlayer(store, info.ID, false)
	require.NoError(t, p.ProbeConfiguration())
	assert.True(t, p.CalibrationValid())
	assert.Error(t, p.SetResolution(480, 360, 60))
	assert.NoError(t, p.SetResolution(4, 4, 60))
	assert.Error(t, p.StartCapture(), "empty session")
	assert.ErrorIs(t, p.Grab(), sensor.ErrNotStreaming)
}
