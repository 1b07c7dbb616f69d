package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// errPermanent marks injected failures that the Memory store reports as permanent.
var errPermanent = errors.New("permanent failure")

// Memory is an in-process Store used by tests and local development.
// Failures can be queued per operation to exercise retry paths.
type Memory struct {
	name    string
	baseURL string

	mu       sync.Mutex
	objects  map[string]Object
	failures map[string][]error
	calls    map[string]int
}

var _ Store = (*Memory)(nil)

func NewMemory(name string) *Memory {
	return &Memory{
		name:     name,
		baseURL:  "https://memory.invalid/" + url.PathEscape(name),
		objects:  make(map[string]Object),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// Put stores an object with the given size.
func (m *Memory) Put(key string, size int64, modified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Key: key, Size: size, LastModified: modified}
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
}

// FailNext queues errors returned by the next calls to op ("list", "stat",
// "sign" or "ping"), one error per call.
func (m *Memory) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

// Permanent wraps err so that IsPermanentError reports true for it.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", errPermanent, err)
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if queued := m.failures[op]; len(queued) > 0 {
		m.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (m *Memory) Name() string {
	return "memory:" + m.name
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.enter("list"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []Object
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, obj)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *Memory) Stat(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if err := m.enter("stat"); err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return Object{}, fmt.Errorf("stat %s: %w", key, ErrNotExist)
	}
	return obj, nil
}

func (m *Memory) SignedURL(ctx context.Context, key string, expires time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := m.enter("sign"); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("sp", "r")
	q.Set("se", expires.UTC().Format(time.RFC3339))
	return m.baseURL + "/" + key + "?" + q.Encode(), nil
}

func (m *Memory) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.enter("ping")
}

func (m *Memory) IsPermanentError(err error) bool {
	return errors.Is(err, ErrNotExist) || errors.Is(err, errPermanent)
}
