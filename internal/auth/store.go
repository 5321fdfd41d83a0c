package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/lowaak/workout-session/workout-session-app/internal/models"
)

type credentials struct {
	Token   string       `json:"token"`
	User    *models.User `json:"user,omitempty"`
	SavedAt time.Time    `json:"saved_at"`
}

// credentialStore reads and writes the credential file. The file holds a
// bearer token, so it is written owner-only.
type credentialStore struct {
	filePath string
	logger   logrus.FieldLogger
}

func newCredentialStore(filePath string, logger logrus.FieldLogger) *credentialStore {
	return &credentialStore{filePath: filePath, logger: logger}
}

// load returns nil credentials when the file does not exist. A corrupt file
// is logged and treated as absent.
func (p *credentialStore) load() (*credentials, error) {
	raw, err := os.ReadFile(p.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Debugf("CredentialStore: load %s (no existing file)", p.filePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.filePath, err)
	}
	var creds credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		p.logger.Warnf("CredentialStore: load %s failed to parse: %v", p.filePath, err)
		return nil, nil
	}
	return &creds, nil
}

// save replaces the file atomically.
func (p *credentialStore) save(creds credentials) (err error) {
	dir := filepath.Dir(p.filePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save credentials: mkdir: %w", err)
	}
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("save credentials: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreNotExist(os.Remove(tmp.Name())))
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return multierr.Combine(fmt.Errorf("save credentials: chmod: %w", err), tmp.Close())
	}
	if _, err := tmp.Write(raw); err != nil {
		return multierr.Combine(fmt.Errorf("save credentials: write: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save credentials: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.filePath); err != nil {
		return fmt.Errorf("save credentials: rename: %w", err)
	}
	p.logger.Debugf("CredentialStore: saved %s", p.filePath)
	return nil
}

func (p *credentialStore) remove() error {
	if err := ignoreNotExist(os.Remove(p.filePath)); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
