package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

const defaultTimeout = 10 * time.Second

// Store is the remote draft of a resource record. All operations are safe
// to retry manually; none are retried automatically.
type Store interface {
	// GetDraftMetadata fetches the current server-side draft.
	GetDraftMetadata(ctx context.Context) (pdr.ResourceRecord, error)
	// UpdateMetadata merges the patch into the server draft and returns
	// the entire resulting draft.
	UpdateMetadata(ctx context.Context, patch pdr.ResourceRecord) (pdr.ResourceRecord, error)
	// SaveDraft commits the current draft as the new baseline. A later
	// discard reverts to this point, not to the original.
	SaveDraft(ctx context.Context) (pdr.ResourceRecord, error)
	// DiscardDraft reverts the server draft to the last committed baseline.
	DiscardDraft(ctx context.Context) (pdr.ResourceRecord, error)
	// DoneEditing marks the editing session closed server-side.
	DoneEditing(ctx context.Context) (pdr.ResourceRecord, error)
}

// HTTPStore talks to the draft service over its REST surface, carrying a
// bearer token obtained from the authorization broker.
type HTTPStore struct {
	base       string
	resourceID string
	token      string
	client     *http.Client
	log        *zap.Logger
}

// NewHTTPStore binds a store to one resource and one edit token.
func NewHTTPStore(base, resourceID, token string, log *zap.Logger) *HTTPStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPStore{
		base:       base,
		resourceID: resourceID,
		token:      token,
		client:     &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
}

// ResourceID returns the identifier this store is bound to.
func (s *HTTPStore) ResourceID() string {
	return s.resourceID
}

func (s *HTTPStore) GetDraftMetadata(ctx context.Context) (pdr.ResourceRecord, error) {
	return s.do(ctx, "GetDraftMetadata", http.MethodGet, "/api/draft/"+s.resourceID, nil)
}

func (s *HTTPStore) UpdateMetadata(ctx context.Context, patch pdr.ResourceRecord) (pdr.ResourceRecord, error) {
	if len(patch) == 0 {
		return nil, userInputError("UpdateMetadata", "empty patch")
	}
	return s.do(ctx, "UpdateMetadata", http.MethodPatch, "/api/draft/"+s.resourceID, patch)
}

func (s *HTTPStore) SaveDraft(ctx context.Context) (pdr.ResourceRecord, error) {
	return s.do(ctx, "SaveDraft", http.MethodPut, "/api/savedrecord/"+s.resourceID, nil)
}

func (s *HTTPStore) DiscardDraft(ctx context.Context) (pdr.ResourceRecord, error) {
	return s.do(ctx, "DiscardDraft", http.MethodDelete, "/api/draft/"+s.resourceID, nil)
}

func (s *HTTPStore) DoneEditing(ctx context.Context) (pdr.ResourceRecord, error) {
	patch := pdr.ResourceRecord{pdr.KeyEditStatus: pdr.EditStatusDone}
	return s.do(ctx, "DoneEditing", http.MethodPatch, "/api/draft/"+s.resourceID, patch)
}

func (s *HTTPStore) do(ctx context.Context, op, method, path string, body any) (pdr.ResourceRecord, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, systemError(op, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, reader)
	if err != nil {
		return nil, systemError(op, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("draft service unreachable",
			zap.String("op", op), zap.String("resource", s.resourceID), zap.Error(err))
		return nil, connectionError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(op, resp.StatusCode)
		if err.Kind != KindNotFound {
			s.log.Warn("draft service rejected request",
				zap.String("op", op), zap.String("resource", s.resourceID),
				zap.Int("status", resp.StatusCode))
		}
		return nil, err
	}

	var record pdr.ResourceRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, systemError(op, err)
	}
	return record, nil
}
