package routines

import (
	"reflect"
	"testing"
)

func TestJoinBlocksUntilCompletion(t *testing.T) {
	r := New()
	var trace []string

	a := r.Spawn(func(any) {
		r.SuspendSelf()
		trace = append(trace, "a:done")
	}, nil)

	b := r.Spawn(func(any) {
		trace = append(trace, "b:joining")
		r.Join(a)
		trace = append(trace, "b:joined")
	}, nil)

	if s := b.State(); s != BlockedJoin {
		t.Fatalf("joiner should be blocked, state %v", s)
	}

	r.Resume(a)
	r.Yield()

	want := []string{"b:joining", "a:done", "b:joined"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("wrong trace: got %v, expected %v", trace, want)
	}
	if a.State() != Completed || b.State() != Completed {
		t.Errorf("both coroutines should be completed: a=%v b=%v", a.State(), b.State())
	}
}

func TestJoinCompletedReturnsImmediately(t *testing.T) {
	r := New()

	a := r.Spawn(func(any) {}, nil)

	joined := false
	r.Spawn(func(any) {
		r.Join(a)
		joined = true
	}, nil)

	if !joined {
		t.Error("joining a completed coroutine should not block")
	}
}

func TestDestroyResumesJoiners(t *testing.T) {
	r := New()

	a := r.Spawn(func(any) {
		r.SuspendSelf()
	}, nil)

	var observed State
	b := r.Spawn(func(any) {
		r.Join(a)
		observed = a.State()
	}, nil)

	r.Destroy(a)
	r.Yield()

	if observed != Completed {
		t.Errorf("joiner observed state %v, expected Completed", observed)
	}
	if b.State() != Completed {
		t.Errorf("joiner did not complete: %v", b.State())
	}
}

func TestSuspendIsIdempotent(t *testing.T) {
	r := New()

	c := r.Spawn(func(any) {
		r.SuspendSelf()
	}, nil)

	r.Suspend(c)
	r.Suspend(c)

	if s := c.State(); s != Suspended {
		t.Errorf("state should stay Suspended, got %v", s)
	}
	if c.list != nil || c.prev != nil || c.next != nil {
		t.Error("suspended coroutine must not be on any wait list")
	}
	r.Destroy(c)
}

func TestResumeMovesToReadyTail(t *testing.T) {
	r := New()
	var trace []string

	task := func(arg any) {
		r.SuspendSelf()
		trace = append(trace, arg.(string))
	}
	a := r.Spawn(task, "a")
	b := r.Spawn(task, "b")

	r.Resume(b)
	r.Resume(a)
	r.Yield()

	want := []string{"b", "a"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("resume order not preserved: got %v, expected %v", trace, want)
	}
}

func TestDestroyRunsDefers(t *testing.T) {
	r := New()
	var trace []string

	c := r.Spawn(func(any) {
		defer func() {
			trace = append(trace, "deferred")
		}()
		r.SuspendSelf()
		trace = append(trace, "not reached")
	}, nil)

	r.Destroy(c)

	if !reflect.DeepEqual(trace, []string{"deferred"}) {
		t.Errorf("destroy should unwind through defers: %v", trace)
	}
	if s := c.State(); s != Completed {
		t.Errorf("destroyed coroutine should read Completed, got %v", s)
	}
}

func TestDestroySelfCompletes(t *testing.T) {
	r := New()
	var trace []string

	c := r.Spawn(func(any) {
		trace = append(trace, "before")
		r.Destroy(r.Self())
		trace = append(trace, "after")
	}, nil)

	if !reflect.DeepEqual(trace, []string{"before"}) {
		t.Errorf("self-destruction should not return: %v", trace)
	}
	if s := c.State(); s != Completed {
		t.Errorf("self-destroyed coroutine should read Completed, got %v", s)
	}
}

func TestUserData(t *testing.T) {
	r := New()

	c := r.Spawn(func(any) {
		r.SetSelfData("inner")
	}, nil)

	if v := c.Data(); v != "inner" {
		t.Errorf("data set through SetSelfData not visible: %v", v)
	}

	c.SetData(42)
	if v := c.Data(); v != 42 {
		t.Errorf("data set through SetData not visible: %v", v)
	}
}

func TestSelfDataFromRootPanics(t *testing.T) {
	r := New()
	mustPanic(t, "routines: SelfData from the root flow", func() {
		r.SelfData()
	})
	mustPanic(t, "routines: SetSelfData from the root flow", func() {
		r.SetSelfData(1)
	})
}

func TestResumeContractViolations(t *testing.T) {
	r := New()

	completed := r.Spawn(func(any) {}, nil)
	mustPanic(t, "routines: Resume of a completed coroutine", func() {
		r.Resume(completed)
	})

	// Resuming the running coroutine is caught from inside the
	// coroutine itself; recover there so the worker survives.
	var recovered any
	r.Spawn(func(any) {
		defer func() {
			recovered = recover()
		}()
		r.Resume(r.Self())
	}, nil)
	if recovered != "routines: Resume of the running coroutine" {
		t.Errorf("wrong panic: %v", recovered)
	}
}

func TestSpawnNilTaskPanics(t *testing.T) {
	r := New()
	mustPanic(t, "routines: Spawn with a nil task", func() {
		r.Spawn(nil, nil)
	})
}

func mustPanic(t *testing.T, want string, f func()) {
	t.Helper()
	defer func() {
		v := recover()
		if v == nil {
			t.Errorf("expected panic %q, got none", want)
		} else if v != want {
			t.Errorf("wrong panic: got %v, expected %q", v, want)
		}
	}()
	f()
}
