package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hmuroya/taskward/internal/task"
	"github.com/hmuroya/taskward/pkg/cerr"
	"github.com/hmuroya/taskward/pkg/storage"
)

// DocumentPath is the storage key of the shared task document.
const DocumentPath = "tasks/tasks.yaml"

// document is the single on-disk shape: the whole task set plus the
// append-only history log live in one YAML document.
type document struct {
	Tasks   []*task.Task         `yaml:"tasks"`
	History []*task.HistoryEvent `yaml:"history"`
}

// YAMLRepository stores everything in one YAML document and serializes every
// mutation behind a mutex. The backing medium is read-modify-write over a
// shared document, so two interleaved writers would lose updates; the mutex
// gives mutations a strict first-in-first-out order.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func (r *YAMLRepository) load(ctx context.Context) (*document, error) {
	data, err := r.storage.Read(ctx, DocumentPath)
	if err != nil {
		// A missing document is an empty store, not an error.
		if errors.Is(err, storage.ErrNotFound) {
			return &document{}, nil
		}
		return nil, cerr.WrapStorageReadError("task document", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task document: %w", err))
	}
	return &doc, nil
}

func (r *YAMLRepository) save(ctx context.Context, doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task document: %w", err))
	}
	if err := r.storage.Write(ctx, DocumentPath, data); err != nil {
		return cerr.WrapStorageWriteError("task document", err)
	}
	return nil
}

func (r *YAMLRepository) ListAll(ctx context.Context) ([]*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, len(doc.Tasks))
	for i, t := range doc.Tasks {
		tasks[i] = t.Clone()
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
	return tasks, nil
}

func (r *YAMLRepository) FindByID(ctx context.Context, id string) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range doc.Tasks {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
}

func (r *YAMLRepository) Upsert(ctx context.Context, t *task.Task, event *task.HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range doc.Tasks {
		if existing.ID == t.ID {
			doc.Tasks[i] = t.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Tasks = append(doc.Tasks, t.Clone())
	}
	if event != nil {
		doc.History = append(doc.History, event)
	}
	return r.save(ctx, doc)
}

func (r *YAMLRepository) ReplaceAll(ctx context.Context, tasks []*task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	next := make([]*task.Task, len(tasks))
	for i, t := range tasks {
		next[i] = t.Clone()
	}
	doc.Tasks = next
	return r.save(ctx, doc)
}

func (r *YAMLRepository) AppendHistory(ctx context.Context, event *task.HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	doc.History = append(doc.History, event)
	return r.save(ctx, doc)
}

func (r *YAMLRepository) History(ctx context.Context, taskID string) ([]*task.HistoryEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var events []*task.HistoryEvent
	for _, ev := range doc.History {
		if ev.TaskID == taskID {
			events = append(events, ev)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}
