package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/bananadoro/go/internal/pomodoro/session"
)

type fakeRow struct {
	work, brk *int32
	err       error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(**int32)) = r.work
	*(dest[1].(**int32)) = r.brk
	return nil
}

type fakeQuerier struct {
	row   fakeRow
	calls int
	args  []any
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	q.args = args
	return q.row
}

func int32p(v int32) *int32 { return &v }

func TestPostgresStore_Defaults(t *testing.T) {
	fallback := session.DefaultDurations()

	tests := []struct {
		name     string
		identity string
		row      fakeRow
		want     session.Durations
		wantErr  bool
		calls    int
	}{
		{
			name:     "anonymous skips lookup",
			identity: "",
			want:     fallback,
			calls:    0,
		},
		{
			name:     "saved minutes are converted",
			identity: "user-1",
			row:      fakeRow{work: int32p(50), brk: int32p(10)},
			want:     session.Durations{Work: 3000, Break: 600},
			calls:    1,
		},
		{
			name:     "null column keeps fallback",
			identity: "user-1",
			row:      fakeRow{work: int32p(45)},
			want:     session.Durations{Work: 2700, Break: 300},
			calls:    1,
		},
		{
			name:     "zero minutes keeps fallback",
			identity: "user-1",
			row:      fakeRow{work: int32p(0), brk: int32p(0)},
			want:     fallback,
			calls:    1,
		},
		{
			name:     "no row",
			identity: "user-2",
			row:      fakeRow{err: pgx.ErrNoRows},
			want:     fallback,
			calls:    1,
		},
		{
			name:     "query failure",
			identity: "user-3",
			row:      fakeRow{err: errors.New("connection refused")},
			want:     fallback,
			wantErr:  true,
			calls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQuerier{row: tt.row}
			store := NewPostgresStore(q, fallback)

			got, err := store.Defaults(context.Background(), tt.identity)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Defaults() = %+v, want %+v", got, tt.want)
			}
			if q.calls != tt.calls {
				t.Fatalf("QueryRow calls = %d, want %d", q.calls, tt.calls)
			}
			if tt.calls > 0 && q.args[0] != tt.identity {
				t.Fatalf("query arg = %v, want %q", q.args[0], tt.identity)
			}
		})
	}
}

func TestStaticStore(t *testing.T) {
	want := session.Durations{Work: 60, Break: 30}
	got, err := StaticStore{Durations: want}.Defaults(context.Background(), "anyone")
	if err != nil || got != want {
		t.Fatalf("Defaults() = %+v, %v", got, err)
	}
}
