package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"newsreel/internal/failure"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	id := store.Create(cancel)
	st, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if st.State != StatePending || st.Progress != 0 {
		t.Errorf("initial status = %+v, want pending at 0", st)
	}

	_ = store.Update(id, StateSynthesizingAudio, 20, "synthesizing")
	_ = store.Update(id, StateAligningCaptions, 10, "aligning")
	st, _ = store.Get(id)
	if st.State != StateAligningCaptions {
		t.Errorf("state = %q, want aligning_captions", st.State)
	}
	if st.Progress != 20 {
		t.Errorf("progress = %d, want 20 (never decreases)", st.Progress)
	}

	if err := store.Finish(id, "/out/video.mp4", "done"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	st, _ = store.Get(id)
	if st.State != StateReady || st.Progress != 100 || st.VideoPath != "/out/video.mp4" {
		t.Errorf("final status = %+v", st)
	}
	if ctx.Err() == nil {
		t.Error("job context should be released on finish")
	}

	_ = store.Update(id, StateCompositing, 50, "late")
	_ = store.Fail(id, errors.New("late"))
	if st, _ = store.Get(id); st.State != StateReady {
		t.Errorf("terminal state changed to %q", st.State)
	}
}

func TestStoreUpdateCapsProgress(t *testing.T) {
	store := NewStore()
	id := store.Create(func() {})

	_ = store.Update(id, StateCompositing, 150, "")
	if st, _ := store.Get(id); st.Progress != 99 {
		t.Errorf("progress = %d, want 99 before finish", st.Progress)
	}
}

func TestStoreFailUsesUserMessage(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	id := store.Create(cancel)

	err := &failure.CompositorError{
		Diagnostic: "frame=1\n[Parsed_drawtext_0] Cannot find font /secret/path\x1b[0m",
		Err:        errors.New("exit status 1"),
	}
	if err := store.Fail(id, err); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}

	st, _ := store.Get(id)
	if st.State != StateError {
		t.Errorf("state = %q, want error", st.State)
	}
	if st.Message == "" || st.Message == err.Error() {
		t.Errorf("message = %q, want user-facing text", st.Message)
	}
	if ctx.Err() == nil {
		t.Error("job context should be released on failure")
	}
}

func TestStoreCancel(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	id := store.Create(cancel)

	if err := store.Cancel(id); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Cancel() should cancel the job context")
	}
	if err := store.Cancel("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStoreUnknownJob(t *testing.T) {
	store := NewStore()

	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := store.Update("nope", StateCompositing, 1, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := store.Finish("nope", "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = store.Create(func() {})
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			for p := 0; p <= 100; p++ {
				_ = store.Update(id, StateCompositing, p, "working")
			}
			_ = store.Finish(id, "/v.mp4", "")
		}(id)
		go func(id string) {
			defer wg.Done()
			last := 0
			for range 200 {
				st, err := store.Get(id)
				if err != nil {
					t.Error(err)
					return
				}
				if st.Progress < last {
					t.Errorf("progress went backwards: %d < %d", st.Progress, last)
					return
				}
				last = st.Progress
			}
		}(id)
	}
	wg.Wait()

	if got := len(store.List()); got != len(ids) {
		t.Errorf("List() = %d jobs, want %d", got, len(ids))
	}
	for _, st := range store.List() {
		if st.State != StateReady {
			t.Errorf("job %s state = %q, want ready", st.JobID, st.State)
		}
	}
}
