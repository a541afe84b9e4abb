package occupancy_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/detection"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/repository/mocks"
	"github.com/rpggio/waitwatch/internal/timeutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func personAt(x float64) detection.Detection {
	return detection.Detection{Box: detection.Box{X1: x, Y1: 0, X2: x + 10, Y2: 20}, Confidence: 0.9}
}

func trackAt(raw string, x float64) detection.TrackerBox {
	return detection.TrackerBox{RawID: raw, Box: detection.Box{X1: x, Y1: 0, X2: x + 10, Y2: 20}}
}

type recordingObserver struct {
	closed []occupancy.Session
}

func (o *recordingObserver) SessionClosed(sess occupancy.Session) {
	o.closed = append(o.closed, sess)
}

func TestProcessFrame_OpensNewIdentity(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil).Once()
	repo.On("FindOpen", ctx, "cam-1", "1").Return(nil, occupancy.ErrSessionNotFound)
	repo.On("CreateOpen", ctx, "cam-1", "1", t0).Return(&occupancy.Session{Identity: "1"}, nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{{Source: "cam-1", Identity: "1", EnteredAt: t0}}, nil)

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	result, err := svc.ProcessFrame(ctx, occupancy.Frame{
		Source:     "cam-1",
		Detections: []detection.Detection{personAt(0)},
		Tracks:     []detection.TrackerBox{trackAt("17", 0)},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, result.Opened)
	require.Empty(t, result.Closed)
	require.Len(t, result.Tracked, 1)
	repo.AssertExpectations(t)
}

func TestProcessFrame_ExistingOpenSessionIsKept(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, occupancy.DefaultSource).Return(int64(6), nil)
	repo.On("FindOpen", ctx, occupancy.DefaultSource, "7").Return(&occupancy.Session{Identity: "7"}, nil)
	repo.On("ListOpen", ctx, occupancy.DefaultSource).Return([]occupancy.Session{{Identity: "7"}}, nil)

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	result, err := svc.ProcessFrame(ctx, occupancy.Frame{Detections: []detection.Detection{personAt(0)}})
	require.NoError(t, err)
	require.Empty(t, result.Opened)
	require.Equal(t, occupancy.DefaultSource, result.Source)
	repo.AssertNotCalled(t, "CreateOpen", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessFrame_ClosesAbsentIdentities(t *testing.T) {
	ctx := context.Background()
	exit := t0.Add(10 * time.Minute)
	dur := 600.0
	closed := &occupancy.Session{Source: "cam-1", Identity: "3", EnteredAt: t0, ExitedAt: &exit, DurationSeconds: &dur}

	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(3), nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{{Source: "cam-1", Identity: "3", EnteredAt: t0}}, nil)
	repo.On("CloseOpen", ctx, "cam-1", "3", exit).Return(closed, nil)

	observer := &recordingObserver{}
	svc := occupancy.NewService(repo, timeutil.NewMockClock(exit), occupancy.Config{}, nil)
	svc.AddObserver(observer)

	result, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1"})
	require.NoError(t, err)
	require.Len(t, result.Closed, 1)
	require.Equal(t, "3", result.Closed[0].Identity)
	require.Len(t, observer.closed, 1)
}

func TestProcessFrame_DoubleCloseIsSilent(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{{Identity: "3"}}, nil)
	repo.On("CloseOpen", ctx, "cam-1", "3", t0).Return(nil, nil)

	observer := &recordingObserver{}
	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	svc.AddObserver(observer)

	result, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1"})
	require.NoError(t, err)
	require.Empty(t, result.Closed)
	require.Empty(t, observer.closed)
}

func TestProcessFrame_UsesCapturedAt(t *testing.T) {
	ctx := context.Background()
	captured := t0.Add(-time.Hour)

	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil)
	repo.On("FindOpen", ctx, "cam-1", "1").Return(nil, occupancy.ErrSessionNotFound)
	repo.On("CreateOpen", ctx, "cam-1", "1", captured).Return(&occupancy.Session{}, nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{}, nil)

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	_, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1", CapturedAt: captured, Detections: []detection.Detection{personAt(0)}})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessFrame_AlreadyOpenRaceIsIgnored(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil)
	repo.On("FindOpen", ctx, "cam-1", "1").Return(nil, occupancy.ErrSessionNotFound)
	repo.On("CreateOpen", ctx, "cam-1", "1", t0).Return(nil, occupancy.ErrAlreadyOpen)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{{Identity: "1"}}, nil)

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	result, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1", Detections: []detection.Detection{personAt(0)}})
	require.NoError(t, err)
	require.Empty(t, result.Opened)
}

func TestProcessFrame_SeedsIdentitiesOncePerSource(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(41), nil).Once()
	repo.On("FindOpen", ctx, "cam-1", mock.Anything).Return(nil, occupancy.ErrSessionNotFound)
	repo.On("CreateOpen", ctx, "cam-1", mock.Anything, t0).Return(&occupancy.Session{}, nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{}, nil)

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	first, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1", Detections: []detection.Detection{personAt(0)}})
	require.NoError(t, err)
	second, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1", Detections: []detection.Detection{personAt(0)}})
	require.NoError(t, err)

	require.Equal(t, "42", first.Tracked[0].Identity)
	require.Equal(t, "43", second.Tracked[0].Identity)
	repo.AssertNumberOfCalls(t, "MaxIdentity", 1)
}

func TestProcessFrame_StoreErrorAbortsPass(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil)
	repo.On("FindOpen", ctx, "cam-1", "1").Return(nil, errors.New("database is locked"))

	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	_, err := svc.ProcessFrame(ctx, occupancy.Frame{Source: "cam-1", Detections: []detection.Detection{personAt(0)}})
	require.Error(t, err)
	repo.AssertNotCalled(t, "ListOpen", mock.Anything, mock.Anything)
}

type sliceSource struct {
	frames []occupancy.Frame
	errs   []error
}

func (s *sliceSource) Next(ctx context.Context) (occupancy.Frame, error) {
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return occupancy.Frame{}, err
		}
	}
	if len(s.frames) == 0 {
		return occupancy.Frame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestRun_ContinuesAfterStoreErrorAndStopsAtEOF(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.SessionRepository{}
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), errors.New("unavailable")).Once()
	repo.On("MaxIdentity", ctx, "cam-1").Return(int64(0), nil)
	repo.On("ListOpen", ctx, "cam-1").Return([]occupancy.Session{}, nil)

	src := &sliceSource{
		frames: []occupancy.Frame{{Source: "cam-1"}, {Source: "cam-1"}},
		errs:   []error{occupancy.ErrInvalidInput, nil, nil},
	}
	svc := occupancy.NewService(repo, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	require.NoError(t, svc.Run(ctx, src))
	repo.AssertNumberOfCalls(t, "MaxIdentity", 2)
	repo.AssertNumberOfCalls(t, "ListOpen", 1)
}

func TestRun_ReturnsReadErrors(t *testing.T) {
	src := &sliceSource{errs: []error{errors.New("broken pipe")}}
	svc := occupancy.NewService(&mocks.SessionRepository{}, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	require.Error(t, svc.Run(context.Background(), src))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := occupancy.NewService(&mocks.SessionRepository{}, timeutil.NewMockClock(t0), occupancy.Config{}, nil)
	require.ErrorIs(t, svc.Run(ctx, &sliceSource{}), context.Canceled)
}
