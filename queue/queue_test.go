package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/justapithecus/chunkstream/queue"
)

func TestQueue_PutGet_FIFO(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := q.Put(ctx, i); err != nil {
			t.Fatalf("Put(%d) failed: %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		got, err := q.Get(ctx)
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got != i {
			t.Errorf("Get() = %d, want %d", got, i)
		}
	}
}

func TestQueue_Block_WaitsForRoom(t *testing.T) {
	q := queue.New[int](1, queue.Block)
	ctx := context.Background()

	if err := q.Put(ctx, 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- q.Put(ctx, 2)
	}()

	select {
	case <-done:
		t.Fatal("Put returned before room freed up")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("blocked Put failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Put never unblocked after room freed")
	}
}

func TestQueue_DropNew_DiscardsWhenFull(t *testing.T) {
	q := queue.New[int](2, queue.DropNew)
	ctx := context.Background()

	for _, v := range []int{1, 2, 3} {
		if err := q.Put(ctx, v); err != nil {
			t.Fatalf("Put(%d) failed: %v", v, err)
		}
	}

	if got := q.Size(); got != 2 {
		t.Fatalf("Size() = %d, want 2", got)
	}
	if c := q.Counts(); c.Drop != 1 {
		t.Errorf("Counts().Drop = %d, want 1", c.Drop)
	}

	first, _ := q.Get(ctx)
	second, _ := q.Get(ctx)
	if first != 1 || second != 2 {
		t.Errorf("got (%d, %d), want (1, 2)", first, second)
	}
}

func TestQueue_KeepNewest_EvictsOldest(t *testing.T) {
	q := queue.New[int](2, queue.KeepNewest)
	ctx := context.Background()

	for _, v := range []int{1, 2, 3} {
		if err := q.Put(ctx, v); err != nil {
			t.Fatalf("Put(%d) failed: %v", v, err)
		}
	}

	first, _ := q.Get(ctx)
	second, _ := q.Get(ctx)
	if first != 2 || second != 3 {
		t.Errorf("got (%d, %d), want (2, 3)", first, second)
	}
	if c := q.Counts(); c.Drop != 1 {
		t.Errorf("Counts().Drop = %d, want 1", c.Drop)
	}
}

func TestQueue_Get_DrainsAfterClose(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	ctx := context.Background()

	if err := q.Put(ctx, 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := q.Put(ctx, 2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	q.Close()

	if _, err := q.Get(ctx); err != nil {
		t.Fatalf("Get (1st) after close failed: %v", err)
	}
	if _, err := q.Get(ctx); err != nil {
		t.Fatalf("Get (2nd) after close failed: %v", err)
	}
	if _, err := q.Get(ctx); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("Get on drained closed queue = %v, want ErrClosed", err)
	}
}

func TestQueue_Put_AfterClose(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	q.Close()
	if err := q.Put(context.Background(), 1); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("Put after close = %v, want ErrClosed", err)
	}
}

func TestQueue_Producer_AutoClosesOnLastRelease(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	p1, err := q.CreateProducer()
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}
	p2, err := q.CreateProducer()
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}

	if err := p1.Put(context.Background(), 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	p1.Release()
	if q.IsClosed() {
		t.Fatal("queue closed with one producer still outstanding")
	}

	p2.Release()
	if !q.IsClosed() {
		t.Fatal("queue did not close after last producer released")
	}
}

func TestQueue_Producer_ReleaseIdempotent(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	p, err := q.CreateProducer()
	if err != nil {
		t.Fatalf("CreateProducer failed: %v", err)
	}
	p.Release()
	p.Release()
	if !q.IsClosed() {
		t.Fatal("queue should be closed after its only producer released")
	}
}

func TestQueue_CreateProducer_AfterClose(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	q.Close()
	if _, err := q.CreateProducer(); !errors.Is(err, queue.ErrClosed) {
		t.Errorf("CreateProducer after close = %v, want ErrClosed", err)
	}
}

func TestQueue_GetBatch_WaitsForCount(t *testing.T) {
	q := queue.New[int](8, queue.Block)
	ctx := context.Background()
	if err := q.PutBatch(ctx, []int{1, 2, 3}); err != nil {
		t.Fatalf("PutBatch failed: %v", err)
	}

	got, err := q.GetBatch(ctx, 3)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("GetBatch = %v, want [1 2 3]", got)
	}
}

func TestQueue_WaitForSizeAtLeast(t *testing.T) {
	q := queue.New[int](8, queue.Block)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.WaitForSizeAtLeast(ctx, 2)
	}()

	if err := q.Put(ctx, 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	select {
	case <-errCh:
		t.Fatal("WaitForSizeAtLeast returned before threshold reached")
	case <-time.After(30 * time.Millisecond):
	}

	if err := q.Put(ctx, 2); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("WaitForSizeAtLeast failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForSizeAtLeast never unblocked")
	}
}

func TestQueue_Get_ContextCancel(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := q.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get on empty queue with expired ctx = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	const n = 500
	q := queue.New[int](16, queue.Block)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p, err := q.CreateProducer()
		if err != nil {
			t.Errorf("CreateProducer failed: %v", err)
			return
		}
		defer p.Release()
		for i := 0; i < n; i++ {
			if err := p.Put(ctx, i); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
		}
	}()

	sum := 0
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			v, err := q.Get(ctx)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			sum += v
		}
	}()

	wg.Wait()
	want := n * (n - 1) / 2
	if sum != want {
		t.Errorf("sum = %d, want %d", sum, want)
	}
}

func TestQueue_TakeCounts_Resets(t *testing.T) {
	q := queue.New[int](4, queue.Block)
	ctx := context.Background()
	_ = q.Put(ctx, 1)
	_, _ = q.Get(ctx)

	c := q.TakeCounts()
	if c.Put != 1 || c.Get != 1 {
		t.Errorf("TakeCounts() = %+v, want Put=1 Get=1", c)
	}
	if c2 := q.Counts(); c2.Put != 0 || c2.Get != 0 {
		t.Errorf("Counts() after TakeCounts = %+v, want zeroed", c2)
	}
}
