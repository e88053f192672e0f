package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterValidatesSpec(t *testing.T) {
	s := New()
	if err := s.Register(JobSpec{}); err == nil {
		t.Fatal("expected validation error for empty spec")
	}
	if err := s.Register(JobSpec{Name: "state-backup", Run: func(context.Context) error { return nil }}); err == nil {
		t.Fatal("expected validation error for missing interval")
	}

	valid := JobSpec{
		Name:     "state-backup",
		Interval: 10 * time.Millisecond,
		Run:      func(context.Context) error { return nil },
	}
	if err := s.Register(valid); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Register(valid); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got: %v", err)
	}
}

func TestRunOnStartFiresImmediately(t *testing.T) {
	s := New()
	var runs atomic.Int32

	err := s.Register(JobSpec{
		Name:       "state-backup",
		Interval:   time.Hour,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrSchedulerStart) {
		t.Fatalf("second start = %v, want ErrSchedulerStart", err)
	}

	deadline := time.Now().Add(300 * time.Millisecond)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("RunOnStart job never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestJobWithoutRunOnStartWaitsForTick(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 1)

	err := s.Register(JobSpec{
		Name:     "history-prune",
		Interval: time.Hour,
		Run: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(time.Second)

	select {
	case <-fired:
		t.Fatal("job ran before its first tick")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestTimeoutCancelsJobContext(t *testing.T) {
	s := New()
	finished := make(chan struct{}, 1)

	err := s.Register(JobSpec{
		Name:       "slow-job",
		Interval:   time.Hour,
		Timeout:    10 * time.Millisecond,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			finished <- struct{}{}
			return ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(time.Second)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("expected the timeout to cancel the job context")
	}
}

func TestRegisterAfterStartLaunchesJob(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(time.Second)

	runs := make(chan struct{}, 1)
	err := s.Register(JobSpec{
		Name:       "late-backup",
		Interval:   time.Hour,
		RunOnStart: true,
		Run: func(context.Context) error {
			select {
			case runs <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("job registered after start never ran")
	}
}

func TestUnregisterStopsJob(t *testing.T) {
	s := New()
	var runs atomic.Int32
	err := s.Register(JobSpec{
		Name:     "removable",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(time.Second)

	deadline := time.Now().Add(time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran before unregister")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Unregister("removable"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if err := s.Unregister("removable"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("second unregister = %v, want ErrJobNotFound", err)
	}

	time.Sleep(30 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if runs.Load() != settled {
		t.Fatal("job kept running after unregister")
	}
}

func TestSnapshotRecordsFailureThenRecovery(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	var fail atomic.Bool
	fail.Store(true)

	err := s.Register(JobSpec{
		Name:       "flaky-job",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			if fail.Load() {
				return boom
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop(time.Second)

	waitFor := func(check func(JobStatus) bool) JobStatus {
		deadline := time.Now().Add(time.Second)
		for {
			snap := s.Snapshot()
			if len(snap) == 1 && check(snap[0]) {
				return snap[0]
			}
			if time.Now().After(deadline) {
				t.Fatalf("snapshot never satisfied condition: %+v", snap)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	st := waitFor(func(st JobStatus) bool { return st.Runs > 0 && st.LastError != "" })
	if st.Name != "flaky-job" || st.LastError != boom.Error() {
		t.Fatalf("failed status = %+v", st)
	}
	if st.LastStartAt.IsZero() || st.LastEndAt.IsZero() {
		t.Fatal("expected start and end timestamps")
	}

	fail.Store(false)
	st = waitFor(func(st JobStatus) bool { return st.LastError == "" && st.Runs > 1 })
	if st.LastError != "" {
		t.Fatalf("error not cleared after recovery: %+v", st)
	}
}

func TestHealthReflectsLifecycle(t *testing.T) {
	s := New()
	err := s.Register(JobSpec{
		Name:     "health-job",
		Interval: time.Hour,
		Run:      func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	pre := s.Health()
	if pre.Started || pre.RegisteredJobs != 1 || pre.RunningJobs != 0 {
		t.Fatalf("pre-start health = %+v", pre)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	post := s.Health()
	if !post.Started || post.StartedAt.IsZero() || post.RunningJobs != 1 {
		t.Fatalf("post-start health = %+v", post)
	}

	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	stopped := s.Health()
	if stopped.Started || stopped.RunningJobs != 0 {
		t.Fatalf("post-stop health = %+v", stopped)
	}
}
