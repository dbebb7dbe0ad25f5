package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/data/parser"
	"github.com/penwyp/go-metrobus/internal/data/scanner"
	"github.com/penwyp/go-metrobus/internal/util"
)

const fileParseConcurrency = 4

// FileStore keeps events as JSON lines in daily files under a directory.
// It serves offline use and local development; other processes appending
// to the same directory are picked up by Subscribe.
type FileStore struct {
	dir     string
	parser  *parser.Parser
	scanner *scanner.FileScanner
	now     func() time.Time

	writeMu sync.Mutex

	subMu  sync.Mutex
	subs   map[chan struct{}]struct{}
	closed bool
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:     dir,
		parser:  parser.NewParser(fileParseConcurrency),
		scanner: scanner.NewFileScanner(dir),
		now:     time.Now,
		subs:    make(map[chan struct{}]struct{}),
	}, nil
}

// Dir returns the directory holding the event files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) load(ctx context.Context) ([]stampedEvent, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	files, err := s.scanner.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.dir, err)
	}

	seen := make(map[string]struct{})
	var events []model.AnalyticsEvent
	for result := range s.parser.ParseFiles(files) {
		if result.Error != nil {
			util.LogWarnf("Skipping unreadable event file %s: %v", result.File, result.Error)
			continue
		}
		for _, event := range result.Events {
			if event.ID != "" {
				if _, dup := seen[event.ID]; dup {
					continue
				}
				seen[event.ID] = struct{}{}
			}
			events = append(events, event)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stamped := stamp(events)
	sortNewestFirst(stamped)
	return stamped, nil
}

func (s *FileStore) ListAll(ctx context.Context) ([]model.AnalyticsEvent, error) {
	stamped, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return unstamp(stamped), nil
}

func (s *FileStore) ListByType(ctx context.Context, eventType string, limit, offset int) ([]model.AnalyticsEvent, error) {
	return s.listWhere(ctx, limit, offset, func(e model.AnalyticsEvent) bool {
		return e.EventType == eventType
	})
}

func (s *FileStore) ListByLine(ctx context.Context, line model.LineCode, limit, offset int) ([]model.AnalyticsEvent, error) {
	return s.listWhere(ctx, limit, offset, func(e model.AnalyticsEvent) bool {
		return e.LineCode == string(line)
	})
}

func (s *FileStore) listWhere(ctx context.Context, limit, offset int, keep func(model.AnalyticsEvent) bool) ([]model.AnalyticsEvent, error) {
	stamped, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]model.AnalyticsEvent, 0)
	for _, st := range stamped {
		if keep(st.event) {
			filtered = append(filtered, st.event)
		}
	}
	return page(filtered, limit, offset), nil
}

func (s *FileStore) ListSince(ctx context.Context, since time.Time) ([]model.AnalyticsEvent, error) {
	stamped, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]model.AnalyticsEvent, 0)
	for i := len(stamped) - 1; i >= 0; i-- {
		if !stamped[i].ts.Before(since) {
			result = append(result, stamped[i].event)
		}
	}
	return result, nil
}

func (s *FileStore) Insert(ctx context.Context, event model.AnalyticsEvent) (model.AnalyticsEvent, error) {
	if s.isClosed() {
		return model.AnalyticsEvent{}, ErrClosed
	}
	if event.EventType == "" {
		return model.AnalyticsEvent{}, fmt.Errorf("event_type is required")
	}
	if err := ctx.Err(); err != nil {
		return model.AnalyticsEvent{}, err
	}

	now := s.now()
	event = prepareInsert(event, now)
	line, err := sonic.Marshal(event)
	if err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to encode event: %w", err)
	}
	line = append(line, '\n')

	path := filepath.Join(s.dir, "events-"+now.UTC().Format("2006-01-02")+".jsonl")

	s.writeMu.Lock()
	err = appendLine(path, line)
	s.writeMu.Unlock()
	if err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to append event to %s: %w", path, err)
	}

	s.broadcast()
	return event, nil
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Subscribe reports inserts made through this store and writes by other
// processes to the event directory.
func (s *FileStore) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	fw, err := NewFileWatcher(s.dir, s.scanner.Matches)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	out := make(chan struct{}, 1)
	local := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs[local] = struct{}{}
	s.subMu.Unlock()

	go func() {
		defer close(out)
		defer fw.Close()
		defer func() {
			s.subMu.Lock()
			delete(s.subs, local)
			s.subMu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-fw.Events():
				if !ok {
					return
				}
				if change.Removed {
					util.LogDebugf("Event file removed: %s", change.Path)
					s.parser.Forget(change.Path)
				} else {
					util.LogDebugf("Event file changed: %s", change.Path)
				}
				notify(out)
			case <-local:
				notify(out)
			}
		}
	}()

	return out, nil
}

func (s *FileStore) broadcast() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		notify(ch)
	}
}

func (s *FileStore) isClosed() bool {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.closed
}

func (s *FileStore) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	return nil
}
