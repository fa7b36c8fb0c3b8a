package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const FileName = "transfers.jsonl"

// TransferAuditor appends transfer events to a JSONL file. Attempts are
// batched; an outcome flushes everything pending.
type TransferAuditor struct {
	logFile    string
	mu         sync.Mutex
	batchSize  int
	batch      []Entry
	flushTimer *time.Timer
}

func NewTransferAuditor(dir string) (*TransferAuditor, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	a := &TransferAuditor{
		logFile:   filepath.Join(dir, FileName),
		batchSize: 10,
		batch:     make([]Entry, 0, 10),
	}

	a.flushTimer = time.AfterFunc(time.Minute, func() {
		_ = a.Flush()
	})

	return a, nil
}

// Record stamps and queues an entry.
func (a *TransferAuditor) Record(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	a.mu.Lock()
	a.batch = append(a.batch, entry)
	full := len(a.batch) >= a.batchSize
	a.mu.Unlock()

	if full || entry.Action.Terminal() {
		return a.Flush()
	}
	return nil
}

func (a *TransferAuditor) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.batch) == 0 {
		return nil
	}
	if a.flushTimer != nil {
		a.flushTimer.Reset(time.Minute)
	}

	file, err := os.OpenFile(a.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, entry := range a.batch {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal audit entry: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write audit entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	a.batch = a.batch[:0]
	return nil
}

// History returns the recorded entries for a wallet, oldest first. A zero
// walletID returns everything.
func (a *TransferAuditor) History(walletID int64) ([]Entry, error) {
	if err := a.Flush(); err != nil {
		return nil, err
	}

	file, err := os.Open(a.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	decoder := json.NewDecoder(file)
	for {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			break
		}
		if walletID == 0 || entry.WalletID == walletID {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func (a *TransferAuditor) Close() error {
	if a.flushTimer != nil {
		a.flushTimer.Stop()
	}
	return a.Flush()
}
