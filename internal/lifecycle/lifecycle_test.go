package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prohmpiriya/event-management/internal/domain"
)

type subject struct {
	id int64
	domain.Lifecycle
}

func (s subject) LifecycleID() int64           { return s.id }
func (s subject) LifecycleState() domain.State { return s.State() }

type recordingStore struct {
	calls []string
	err   error
}

func (r *recordingStore) SoftDelete(ctx context.Context, id int64) error {
	r.calls = append(r.calls, "soft_delete")
	return r.err
}

func (r *recordingStore) Restore(ctx context.Context, id int64) error {
	r.calls = append(r.calls, "restore")
	return r.err
}

type purgingStore struct {
	recordingStore
}

func (p *purgingStore) Purge(ctx context.Context, id int64) error {
	p.calls = append(p.calls, "purge")
	return p.err
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.State
		want     bool
	}{
		{domain.StateActive, domain.StateTrashed, true},
		{domain.StateActive, domain.StatePurged, true},
		{domain.StateActive, domain.StateActive, false},
		{domain.StateTrashed, domain.StateActive, true},
		{domain.StateTrashed, domain.StatePurged, true},
		{domain.StateTrashed, domain.StateTrashed, false},
		{domain.StatePurged, domain.StateActive, false},
		{"unknown", domain.StateActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestManager_Apply(t *testing.T) {
	deletedAt := time.Now()
	active := subject{id: 1}
	trashed := subject{id: 2, Lifecycle: domain.Lifecycle{DeletedAt: &deletedAt}}

	tests := []struct {
		name      string
		subject   subject
		op        Transition
		wantErr   error
		wantCalls []string
	}{
		{"trash active", active, Trash, nil, []string{"soft_delete"}},
		{"trash trashed", trashed, Trash, ErrInvalidTransition, nil},
		{"restore trashed", trashed, Restore, nil, []string{"restore"}},
		{"restore active", active, Restore, ErrInvalidTransition, nil},
		{"purge active", active, Purge, nil, []string{"purge"}},
		{"purge trashed", trashed, Purge, nil, []string{"purge"}},
		{"unknown transition", active, "archive", ErrInvalidTransition, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &purgingStore{}
			m := NewManager("event", store)

			err := m.Apply(context.Background(), tt.subject, tt.op)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.wantErr)
			}
			if len(store.calls) != len(tt.wantCalls) {
				t.Fatalf("store calls = %v, want %v", store.calls, tt.wantCalls)
			}
			for i := range tt.wantCalls {
				if store.calls[i] != tt.wantCalls[i] {
					t.Errorf("store calls = %v, want %v", store.calls, tt.wantCalls)
				}
			}
		})
	}
}

func TestManager_PurgeUnsupported(t *testing.T) {
	m := NewManager("attendee", &recordingStore{})

	err := m.Purge(context.Background(), subject{id: 1})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Purge() error = %v, want ErrInvalidTransition", err)
	}
}

func TestManager_StoreErrorWrapped(t *testing.T) {
	storeErr := errors.New("connection reset")
	m := NewManager("organization", &recordingStore{err: storeErr})

	err := m.Trash(context.Background(), subject{id: 7})
	if !errors.Is(err, storeErr) {
		t.Fatalf("Trash() error = %v, want wrapped %v", err, storeErr)
	}
	if m.Entity() != "organization" {
		t.Errorf("Entity() = %q", m.Entity())
	}
}
