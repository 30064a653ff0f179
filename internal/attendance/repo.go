package attendance

import (
	"context"
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"rollcall/internal/metrics"
	"rollcall/internal/store"
)

// Keys names the storage entries holding each collection.
type Keys struct {
	Students string
	Records  string
}

// DefaultKeys are used for any key left empty.
var DefaultKeys = Keys{Students: "attendance_students", Records: "attendance_records"}

// errUnchanged lets a mutation skip the write.
var errUnchanged = errors.New("unchanged")

// Repository persists both collections as JSON arrays shared by every owner.
// Each write replaces only the calling owner's rows; other owners' rows are
// carried over by value, including fields this package does not know.
type Repository struct {
	storage store.Storage
	keys    Keys
	log     zerolog.Logger
	metrics *metrics.Store

	// mu serializes read-modify-write cycles so in-process writers never lose updates.
	mu sync.Mutex
}

// NewRepository creates a repo.
func NewRepository(storage store.Storage, keys Keys, log zerolog.Logger, m *metrics.Store) *Repository {
	if keys.Students == "" {
		keys.Students = DefaultKeys.Students
	}
	if keys.Records == "" {
		keys.Records = DefaultKeys.Records
	}
	return &Repository{storage: storage, keys: keys, log: log, metrics: m}
}

// Students returns the owner's students.
func (r *Repository) Students(ctx context.Context, owner string) ([]Student, error) {
	return list[Student](ctx, r, "students", r.keys.Students, owner)
}

// Records returns the owner's attendance records.
func (r *Repository) Records(ctx context.Context, owner string) ([]Record, error) {
	return list[Record](ctx, r, "records", r.keys.Records, owner)
}

// UpdateStudents applies fn to the owner's students and writes the result back.
func (r *Repository) UpdateStudents(ctx context.Context, owner string, fn func([]Student) ([]Student, error)) error {
	return mutate(ctx, r, "students", r.keys.Students, owner, fn)
}

// UpdateRecords applies fn to the owner's records and writes the result back.
func (r *Repository) UpdateRecords(ctx context.Context, owner string, fn func([]Record) ([]Record, error)) error {
	return mutate(ctx, r, "records", r.keys.Records, owner, fn)
}

type ownerTag struct {
	OwnerID string `json:"teacherId"`
}

func (r *Repository) readRaw(ctx context.Context, name, key string) ([]json.RawMessage, error) {
	raw, err := r.storage.Get(ctx, key)
	if err != nil {
		return nil, &PersistenceError{Collection: name, Op: "read", Err: err}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &PersistenceError{Collection: name, Op: "decode", Err: err}
	}
	return rows, nil
}

func split[T any](name string, rows []json.RawMessage, owner string) (mine []T, others []json.RawMessage, err error) {
	for _, row := range rows {
		var tag ownerTag
		if err := json.Unmarshal(row, &tag); err != nil {
			return nil, nil, &PersistenceError{Collection: name, Op: "decode", Err: err}
		}
		if tag.OwnerID != owner {
			others = append(others, row)
			continue
		}
		var v T
		if err := json.Unmarshal(row, &v); err != nil {
			return nil, nil, &PersistenceError{Collection: name, Op: "decode", Err: err}
		}
		mine = append(mine, v)
	}
	return mine, others, nil
}

func list[T any](ctx context.Context, r *Repository, name, key, owner string) ([]T, error) {
	rows, err := r.readRaw(ctx, name, key)
	if err == nil {
		var mine []T
		mine, _, err = split[T](name, rows, owner)
		if err == nil {
			return mine, nil
		}
	}
	r.metrics.ReadFailed(name)
	r.log.Warn().Err(err).Str("collection", name).Str("owner", owner).Msg("collection read failed")
	return nil, err
}

func mutate[T any](ctx context.Context, r *Repository, name, key, owner string, fn func([]T) ([]T, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readRaw(ctx, name, key)
	if err != nil {
		r.metrics.Write(name, err)
		r.log.Error().Err(err).Str("collection", name).Str("owner", owner).Msg("refusing to overwrite unreadable collection")
		return err
	}
	mine, others, err := split[T](name, rows, owner)
	if err != nil {
		r.metrics.Write(name, err)
		r.log.Error().Err(err).Str("collection", name).Str("owner", owner).Msg("refusing to overwrite unreadable collection")
		return err
	}

	updated, err := fn(mine)
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}

	out := make([]json.RawMessage, 0, len(others)+len(updated))
	out = append(out, others...)
	for _, v := range updated {
		b, err := json.Marshal(v)
		if err != nil {
			return &PersistenceError{Collection: name, Op: "encode", Err: err}
		}
		out = append(out, b)
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return &PersistenceError{Collection: name, Op: "encode", Err: err}
	}

	if err := r.storage.Set(ctx, key, payload); err != nil {
		perr := &PersistenceError{Collection: name, Op: "write", Err: err}
		r.metrics.Write(name, perr)
		r.log.Error().Err(err).Str("collection", name).Str("owner", owner).Msg("error saving collection")
		return perr
	}
	r.metrics.Write(name, nil)
	return nil
}
