package services

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/filedesk/backend/internal/kvstore"
	"github.com/filedesk/backend/internal/models"
)

// ShareLinkManager issues and resolves opaque share links. Links are
// append-only: no revocation exists, and expired entries simply stop
// resolving instead of being purged.
type ShareLinkManager struct {
	mu         sync.Mutex
	store      *kvstore.Store
	files      *FileManager
	defaultTTL time.Duration
	links      []models.ShareLink
}

func NewShareLinkManager(store *kvstore.Store, files *FileManager, defaultTTL time.Duration) *ShareLinkManager {
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour
	}
	return &ShareLinkManager{
		store:      store,
		files:      files,
		defaultTTL: defaultTTL,
		links:      store.LoadShareLinks(),
	}
}

// newLinkID returns an unguessable URL-safe token.
func newLinkID() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateLink issues a link for a file id. A zero ttl means the default;
// any other value is taken as-is, so a negative ttl yields a link that is
// already expired.
func (s *ShareLinkManager) CreateLink(fileID string, ttl time.Duration) (*models.ShareLink, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	linkID, err := newLinkID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	link := models.ShareLink{
		LinkID:    linkID,
		FileID:    fileID,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, link)
	if err := s.store.SaveShareLinks(s.links); err != nil {
		return nil, err
	}
	return &link, nil
}

// ResolveLink returns the live file record behind a link. Absent links,
// expired links, and links whose file was permanently deleted each fail
// with their own error so callers can tell the cases apart.
func (s *ShareLinkManager) ResolveLink(linkID string) (*models.FileRecord, error) {
	s.mu.Lock()
	var link *models.ShareLink
	for i := range s.links {
		if s.links[i].LinkID == linkID {
			link = &s.links[i]
			break
		}
	}
	s.mu.Unlock()

	if link == nil {
		return nil, ErrLinkNotFound
	}
	if link.Expired(time.Now().UTC()) {
		return nil, ErrLinkExpired
	}

	file, ok := s.files.FileByID(link.FileID)
	if !ok {
		return nil, ErrFileGone
	}
	return &file, nil
}

// Links returns a copy of every issued link, expired ones included.
func (s *ShareLinkManager) Links() []models.ShareLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ShareLink, len(s.links))
	copy(out, s.links)
	return out
}
