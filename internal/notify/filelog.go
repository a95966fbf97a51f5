package notify

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// FileLog appends undeliverable emails to a local file so no notification is
// silently lost. The format is meant for a human picking through the log, not
// for machine parsing.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a fallback log writing to path.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Write appends one message to the log.
func (f *FileLog) Write(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open email log: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("--- %s ---\nTo: %s\nSubject: %s\n\n%s\n\n",
		time.Now().UTC().Format(time.RFC3339), to, subject, body)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("write email log: %w", err)
	}
	return nil
}
