package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/trebuchet-org/treb-deploy/internal/domain"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"github.com/trebuchet-org/treb-deploy/internal/usecase"
)

const (
	TrebDir         = ".treb"
	DeploymentsFile = "deployments.json"
	HistoryFile     = "history.jsonl"
	LockFile        = "ledger.lock"

	lockRetryDelay = 25 * time.Millisecond
)

// FileLedger stores deployment records in .treb/deployments.json and appends
// every write to .treb/history.jsonl. Writes are serialised within the process
// by a mutex and across processes by an advisory file lock.
type FileLedger struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

var _ usecase.DeploymentLedger = (*FileLedger)(nil)

// NewFileLedger creates a ledger rooted at the project directory
func NewFileLedger(rootDir string) (*FileLedger, error) {
	dir := filepath.Join(rootDir, TrebDir)

	// Create .treb directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create .treb directory: %v", domain.ErrStorage, err)
	}

	return &FileLedger{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, LockFile)),
	}, nil
}

// Get returns the current record for network/contractID
func (l *FileLedger) Get(ctx context.Context, network, contractID string) (*models.DeploymentRecord, error) {
	records, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	record, ok := records[models.RecordKey(network, contractID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

// Put writes record if its revision matches the stored one, then advances record.Revision
func (l *FileLedger) Put(ctx context.Context, record *models.DeploymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.acquire(ctx, false); err != nil {
		return err
	}
	defer l.lock.Unlock() //nolint:errcheck

	records, err := l.load()
	if err != nil {
		return err
	}

	key := record.Key()
	var current int64
	if existing, ok := records[key]; ok {
		current = existing.Revision
	}
	if current != record.Revision {
		return fmt.Errorf("%w: %s is at revision %d, write was based on %d", domain.ErrConflict, key, current, record.Revision)
	}

	next := record.Clone()
	next.Revision++
	records[key] = next

	// history only ever holds revisions that reached deployments.json
	if err := l.save(records); err != nil {
		return err
	}
	if err := l.appendHistory(next); err != nil {
		return err
	}

	record.Revision = next.Revision
	return nil
}

// List returns the records of a network, or of every network when network is empty
func (l *FileLedger) List(ctx context.Context, network string) ([]*models.DeploymentRecord, error) {
	records, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.DeploymentRecord, 0, len(records))
	for _, r := range records {
		if network == "" || r.Network == network {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// History returns every revision written for network/contractID, oldest first
func (l *FileLedger) History(ctx context.Context, network, contractID string) ([]*models.DeploymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.acquire(ctx, true); err != nil {
		return nil, err
	}
	defer l.lock.Unlock() //nolint:errcheck

	f, err := os.Open(filepath.Join(l.dir, HistoryFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open history: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	key := models.RecordKey(network, contractID)
	var history []*models.DeploymentRecord

	dec := json.NewDecoder(f)
	dec.UseNumber()
	for {
		var r models.DeploymentRecord
		if err := dec.Decode(&r); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: corrupt history: %v", domain.ErrStorage, err)
		}
		if r.Key() == key {
			history = append(history, &r)
		}
	}
	return history, nil
}

// read loads the records under a shared lock
func (l *FileLedger) read(ctx context.Context) (map[string]*models.DeploymentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.acquire(ctx, true); err != nil {
		return nil, err
	}
	defer l.lock.Unlock() //nolint:errcheck

	return l.load()
}

func (l *FileLedger) acquire(ctx context.Context, shared bool) error {
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = l.lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to lock ledger: %v", domain.ErrStorage, err)
	}
	if !ok {
		return fmt.Errorf("%w: ledger is locked by another process", domain.ErrStorage)
	}
	return nil
}

// load reads deployments.json; numbers in constructor args are kept as json.Number
func (l *FileLedger) load() (map[string]*models.DeploymentRecord, error) {
	records := make(map[string]*models.DeploymentRecord)

	data, err := os.ReadFile(filepath.Join(l.dir, DeploymentsFile))
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read deployments: %v", domain.ErrStorage, err)
	}
	if len(data) == 0 {
		return records, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse deployments: %v", domain.ErrStorage, err)
	}
	return records, nil
}

// save writes deployments.json through a temp file and an atomic rename
func (l *FileLedger) save(records map[string]*models.DeploymentRecord) error {
	path := filepath.Join(l.dir, DeploymentsFile)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode deployments: %v", domain.ErrStorage, err)
	}

	// Write to temp file first
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write deployments: %v", domain.ErrStorage, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: failed to replace deployments: %v", domain.ErrStorage, err)
	}
	return nil
}

func (l *FileLedger) appendHistory(record *models.DeploymentRecord) error {
	f, err := os.OpenFile(filepath.Join(l.dir, HistoryFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: failed to open history: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("%w: failed to append history: %v", domain.ErrStorage, err)
	}
	return nil
}
