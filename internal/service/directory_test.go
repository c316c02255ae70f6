package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/razchen/youtube-ingest/internal/model"
	"github.com/razchen/youtube-ingest/internal/repository"
	"github.com/razchen/youtube-ingest/internal/ytapi"
)

type fakeResolver struct {
	snapshots map[string]*ytapi.ChannelSnapshot
	errs      map[string]error
}

func (f *fakeResolver) ResolveChannelByHandle(_ context.Context, handle string) (*ytapi.ChannelSnapshot, error) {
	if err, ok := f.errs[handle]; ok {
		return nil, err
	}
	return f.snapshots[handle], nil
}

type fakeChannelStore struct {
	mu       sync.Mutex
	upserts  []*model.Channel
	upsertFn func(*model.Channel) error
	channels []model.Channel
	statuses map[string]model.ScrapeStatus
	errors   map[string]*string
	markers  map[string]*time.Time
}

func newFakeChannelStore() *fakeChannelStore {
	return &fakeChannelStore{
		statuses: make(map[string]model.ScrapeStatus),
		errors:   make(map[string]*string),
		markers:  make(map[string]*time.Time),
	}
}

func (f *fakeChannelStore) Upsert(_ context.Context, ch *model.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertFn != nil {
		if err := f.upsertFn(ch); err != nil {
			return err
		}
	}
	f.upserts = append(f.upserts, ch)
	return nil
}

func (f *fakeChannelStore) ListForIngest(_ context.Context, _ repository.ListForIngestOptions) ([]model.Channel, error) {
	return f.channels, nil
}

func (f *fakeChannelStore) SetScrapeStatus(_ context.Context, channelID string, status model.ScrapeStatus, scrapeErr *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[channelID] = status
	f.errors[channelID] = scrapeErr
	return nil
}

func (f *fakeChannelStore) UpdateMarkers(_ context.Context, channelID string, _ time.Time, watermark *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markers[channelID] = watermark
	return nil
}

func snapshotFor(channelID string, handle string) *ytapi.ChannelSnapshot {
	h := handle
	return &ytapi.ChannelSnapshot{
		ChannelID:   channelID,
		Title:       "Channel " + channelID,
		Handle:      &h,
		Subscribers: 1000,
	}
}

func TestDiscoverFromHandles(t *testing.T) {
	resolver := &fakeResolver{
		snapshots: map[string]*ytapi.ChannelSnapshot{
			"@foo": snapshotFor("UCfoo", "@foo"),
		},
	}
	store := newFakeChannelStore()
	dir := NewDirectory(store, resolver, zerolog.Nop())

	summary, err := dir.DiscoverFromHandles(context.Background(), []string{"@foo", "bar"})
	if err != nil {
		t.Fatalf("DiscoverFromHandles: %v", err)
	}

	if summary.Processed != 2 {
		t.Errorf("Processed = %d, want 2", summary.Processed)
	}
	if summary.Resolved != 1 {
		t.Errorf("Resolved = %d, want 1", summary.Resolved)
	}
	if summary.Upserts != 1 {
		t.Errorf("Upserts = %d, want 1", summary.Upserts)
	}
	if !reflect.DeepEqual(summary.NotFound, []string{"@bar"}) {
		t.Errorf("NotFound = %v, want [@bar]", summary.NotFound)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("Errors = %v, want none", summary.Errors)
	}
	if len(store.upserts) != 1 || store.upserts[0].ChannelID != "UCfoo" {
		t.Errorf("upserts = %v, want one row for UCfoo", store.upserts)
	}
}

func TestDiscoverCollectsFailures(t *testing.T) {
	resolver := &fakeResolver{
		snapshots: map[string]*ytapi.ChannelSnapshot{
			"@ok":     snapshotFor("UCok", "@ok"),
			"@broken": snapshotFor("UCbroken", "@broken"),
		},
		errs: map[string]error{"@down": errors.New("api unavailable")},
	}
	store := newFakeChannelStore()
	store.upsertFn = func(ch *model.Channel) error {
		if ch.ChannelID == "UCbroken" {
			return errors.New("constraint violation")
		}
		return nil
	}
	dir := NewDirectory(store, resolver, zerolog.Nop())

	summary, err := dir.DiscoverFromHandles(context.Background(), []string{"@ok", "@down", "@broken"})
	if err != nil {
		t.Fatalf("DiscoverFromHandles: %v", err)
	}

	if summary.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", summary.Resolved)
	}
	if summary.Upserts != 1 {
		t.Errorf("Upserts = %d, want 1", summary.Upserts)
	}
	if len(summary.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", summary.Errors)
	}
}

func TestNormalizeHandles(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"adds marker", []string{"foo"}, []string{"@foo"}},
		{"keeps marker", []string{"@foo"}, []string{"@foo"}},
		{"trims", []string{"  @foo  "}, []string{"@foo"}},
		{"dedupes preserving order", []string{"b", "@a", "@b"}, []string{"@b", "@a"}},
		{"drops empty", []string{"", "  ", "@x"}, []string{"@x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeHandles(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeHandles(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestMergeRows(t *testing.T) {
	rows := []discoverRow{
		{Handle: "foo", Country: "US", Categories: []string{"gaming"}},
		{Handle: "@foo", Categories: []string{"music", "gaming"}},
		{Handle: "@foo", Country: "CA"},
		{Handle: "bar"},
	}

	got := mergeRows(rows)
	if len(got) != 2 {
		t.Fatalf("mergeRows produced %d rows, want 2", len(got))
	}

	foo := got[0]
	if foo.Handle != "@foo" {
		t.Errorf("Handle = %q, want @foo", foo.Handle)
	}
	if foo.Country != "CA" {
		t.Errorf("Country = %q, want last non-empty CA", foo.Country)
	}
	if want := []string{"gaming", "music"}; !reflect.DeepEqual(foo.Categories, want) {
		t.Errorf("Categories = %v, want %v", foo.Categories, want)
	}

	if got[1].Handle != "@bar" {
		t.Errorf("second row Handle = %q, want @bar", got[1].Handle)
	}
}
