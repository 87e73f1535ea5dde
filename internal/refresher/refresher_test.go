package refresher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/testutil"
)

// fakePopulator records populated artists and tracks peak concurrency.
type fakePopulator struct {
	mu      sync.Mutex
	ids     []string
	active  int
	peak    int
	fail    map[string]bool
	hold    time.Duration
	started chan string
}

func (f *fakePopulator) PopulateCatalog(ctx context.Context, artistID string) (*catalog.Result, error) {
	f.mu.Lock()
	f.ids = append(f.ids, artistID)
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- artistID:
		default:
		}
	}
	time.Sleep(f.hold)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.fail[artistID] {
		return nil, library.ErrUpstreamUnavailable
	}
	return &catalog.Result{}, nil
}

func (f *fakePopulator) populated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := append([]string(nil), f.ids...)
	sort.Strings(ids)
	return ids
}

func TestRefreshOnce(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedArtist(t, store, "fresh", "s1")
	testutil.SeedArtist(t, store, "empty-a")
	testutil.SeedArtist(t, store, "empty-b")
	testutil.SeedArtist(t, store, "empty-c")

	populator := &fakePopulator{fail: map[string]bool{"empty-b": true}, hold: 20 * time.Millisecond}
	r := New(store, populator, Options{Concurrency: 2}, testutil.Logger())

	pass, err := r.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Checked != 3 || pass.Refreshed != 2 || pass.Failed != 1 {
		t.Errorf("unexpected pass: %+v", pass)
	}

	got := populator.populated()
	want := []string{"empty-a", "empty-b", "empty-c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
	if populator.peak > 2 {
		t.Errorf("expected at most 2 concurrent populations, got %d", populator.peak)
	}
}

func TestRefreshOnce_StaleCatalog(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedArtist(t, store, "artist", "s1")

	populator := &fakePopulator{}
	r := New(store, populator, Options{Staleness: time.Hour}, testutil.Logger())
	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	pass, err := r.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Refreshed != 1 {
		t.Errorf("expected stale artist refreshed, got %+v", pass)
	}
}

func TestRun(t *testing.T) {
	store := testutil.NewStore(t)
	testutil.SeedArtist(t, store, "artist")

	populator := &fakePopulator{started: make(chan string, 1)}
	r := New(store, populator, Options{Interval: time.Hour}, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case id := <-populator.started:
		if id != "artist" {
			t.Errorf("expected artist to be refreshed, got %s", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected an immediate refresh pass")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("refresher did not stop")
	}
}
