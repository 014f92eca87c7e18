package mutate_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/bdobrica/precommander/internal/precommander/failure"
	"github.com/bdobrica/precommander/internal/precommander/mutate"
	"github.com/bdobrica/precommander/internal/precommander/transport"
)

// fakeRequester records calls and returns canned responses keyed by URL.
type fakeRequester struct {
	bodies map[string]string
	errs   map[string]error
	gets   []string
	posts  []url.Values
}

func (f *fakeRequester) Get(ctx context.Context, rawURL string) (*transport.Response, error) {
	f.gets = append(f.gets, rawURL)
	if err := f.errs[rawURL]; err != nil {
		return nil, err
	}
	return &transport.Response{Body: f.bodies[rawURL]}, nil
}

func (f *fakeRequester) PostForm(ctx context.Context, rawURL string, fields url.Values) (*transport.Response, error) {
	f.posts = append(f.posts, fields)
	if err := f.errs[rawURL]; err != nil {
		return nil, err
	}
	return &transport.Response{Body: f.bodies[rawURL]}, nil
}

// probeSequence returns presence answers in order, repeating the last one.
func probeSequence(calls *int, answers ...bool) mutate.PresenceProbe {
	return func(ctx context.Context) (bool, error) {
		i := *calls
		*calls++
		if i >= len(answers) {
			i = len(answers) - 1
		}
		return answers[i], nil
	}
}

func TestCreate_ConfirmedByMarker(t *testing.T) {
	req := &fakeRequester{bodies: map[string]string{"/edit": "<p>Poznámka vložena.</p>"}}
	ex := mutate.New(req, 0, nil)
	err := ex.Create(context.Background(), mutate.Create{
		Op: "notes.save", URL: "/edit", Fields: url.Values{"n_about": {"bob"}},
		Markers: []string{"Poznámka vložena."},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(req.posts) != 1 || req.posts[0].Get("n_about") != "bob" {
		t.Errorf("posts: %v", req.posts)
	}
}

func TestCreate_AnyOfSeveralMarkers(t *testing.T) {
	req := &fakeRequester{bodies: map[string]string{"/clear": "Historie byla vymazána"}}
	err := mutate.New(req, 0, nil).Create(context.Background(), mutate.Create{
		Op: "cleartext", URL: "/clear", Markers: []string{"Text byl smazán", "Historie byla vymazána"},
	})
	if err != nil {
		t.Fatalf("second marker should confirm: %v", err)
	}
}

func TestCreate_MissingMarkerIsUnconfirmed(t *testing.T) {
	req := &fakeRequester{bodies: map[string]string{"/edit": "<p>Chyba</p>"}}
	err := mutate.New(req, 0, nil).Create(context.Background(), mutate.Create{
		Op: "notes.save", URL: "/edit", Markers: []string{"Poznámka vložena."},
	})
	if failure.KindOf(err) != failure.KindUnconfirmed {
		t.Fatalf("expected Unconfirmed, got %v", err)
	}
}

func TestCreate_TransportFailurePassesThrough(t *testing.T) {
	req := &fakeRequester{errs: map[string]error{"/edit": failure.NewHTTPStatus("POST /edit", 503)}}
	err := mutate.New(req, 0, nil).Create(context.Background(), mutate.Create{Op: "x", URL: "/edit", Markers: []string{"ok"}})
	if failure.KindOf(err) != failure.KindHTTPStatus {
		t.Fatalf("expected HTTPStatus, got %v", err)
	}
}

func TestVerifyAbsent(t *testing.T) {
	tests := []struct {
		name      string
		answers   []bool
		wantKind  failure.Kind
		wantOK    bool
		wantReads int
	}{
		{name: "gone on first reread", answers: []bool{false}, wantOK: true, wantReads: 1},
		{name: "gone on second reread", answers: []bool{true, false}, wantOK: true, wantReads: 2},
		{name: "still present twice", answers: []bool{true, true, false}, wantKind: failure.KindUnconfirmed, wantReads: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := mutate.New(&fakeRequester{}, 0, nil).VerifyAbsent(context.Background(), "notes.delete", probeSequence(&calls, tt.answers...))
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK && failure.KindOf(err) != tt.wantKind {
				t.Fatalf("got %v, want kind %v", err, tt.wantKind)
			}
			if calls != tt.wantReads {
				t.Errorf("reads: got %d, want %d", calls, tt.wantReads)
			}
		})
	}
}

func TestVerifyAbsent_RereadFailureIsUnconfirmed(t *testing.T) {
	calls := 0
	probe := func(ctx context.Context) (bool, error) {
		calls++
		return false, failure.NewNetwork("GET list", errors.New("reset"))
	}
	err := mutate.New(&fakeRequester{}, 0, nil).VerifyAbsent(context.Background(), "notes.delete", probe)
	if failure.KindOf(err) != failure.KindUnconfirmed {
		t.Fatalf("expected Unconfirmed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("reads: got %d, want 2", calls)
	}
}

func TestDeleteConfirmed_NeverRepeatsDelete(t *testing.T) {
	req := &fakeRequester{bodies: map[string]string{"/del?id=1": "ok"}}
	calls := 0
	err := mutate.New(req, 0, nil).DeleteConfirmed(context.Background(), mutate.DeleteRequest{
		Op: "notes.delete", ActionURL: "/del?id=1", Probe: probeSequence(&calls, true, true),
	})
	if failure.KindOf(err) != failure.KindUnconfirmed {
		t.Fatalf("expected Unconfirmed, got %v", err)
	}
	if len(req.gets) != 1 {
		t.Fatalf("delete request must be issued exactly once, got %d", len(req.gets))
	}
}

func TestDeleteConfirmed_DeleteFailureSkipsVerify(t *testing.T) {
	req := &fakeRequester{errs: map[string]error{"/del?id=1": failure.NewHTTPStatus("GET /del", 500)}}
	calls := 0
	err := mutate.New(req, 0, nil).DeleteConfirmed(context.Background(), mutate.DeleteRequest{
		Op: "notes.delete", ActionURL: "/del?id=1", Probe: probeSequence(&calls, false),
	})
	if failure.KindOf(err) != failure.KindHTTPStatus {
		t.Fatalf("expected HTTPStatus, got %v", err)
	}
	if calls != 0 {
		t.Errorf("probe must not run after a failed delete, ran %d times", calls)
	}
}

func TestDeleteAll_PartialSuccess(t *testing.T) {
	req := &fakeRequester{
		bodies: map[string]string{"/del?id=1": "ok"},
		errs:   map[string]error{"/del?id=2": failure.NewHTTPStatus("GET /del", 500)},
	}
	calls := 0
	removed, err := mutate.New(req, 0, nil).DeleteAll(context.Background(), []mutate.DeleteRequest{
		{Op: "blacklist.delete", ActionURL: "/del?id=1", Probe: probeSequence(&calls, false)},
		{Op: "blacklist.delete", ActionURL: "/del?id=2", Probe: probeSequence(&calls, false)},
	})
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if failure.KindOf(err) != failure.KindHTTPStatus {
		t.Errorf("expected the failed delete to be reported, got %v", err)
	}
}
