package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

// Broker establishes whether the current user may edit a given resource
// and, when allowed, produces a Store bound to that resource.
type Broker interface {
	// IsAuthorized reports whether a non-empty edit token is held.
	IsAuthorized() bool
	// AuthorizeEditing resolves edit permission for the resource. A nil
	// store with a nil error means the user is authenticated but not
	// authorized: a legitimate access-denied outcome, not a failure.
	// ErrLoginRedirect means navigation to the login service took over.
	AuthorizeEditing(ctx context.Context, resourceID string) (Store, error)
}

// CredentialSource is implemented by brokers that can report the identity
// behind a granted authorization.
type CredentialSource interface {
	Credential() pdr.Credential
}

// Navigator performs a full page navigation. Crossing it abandons all
// in-memory session state; only the URL survives.
type Navigator interface {
	NavigateTo(url string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(url string)

func (f NavigatorFunc) NavigateTo(url string) { f(url) }

// EditModeParam is the query parameter that marks a return from the login
// round trip so editing can resume non-interactively.
const EditModeParam = "editmode"

// AddEditMarker appends the resume marker to a URL.
func AddEditMarker(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(EditModeParam, "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// ConsumeEditMarker strips the resume marker from a URL, reporting whether
// it was present. The marker is single-use; callers resume editing at most
// once per consumed marker.
func ConsumeEditMarker(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}
	q := u.Query()
	if q.Get(EditModeParam) != "true" {
		return raw, false
	}
	q.Del(EditModeParam)
	u.RawQuery = q.Encode()
	return u.String(), true
}

const permCacheTTL = 5 * time.Minute

// HTTPBroker authorizes editing against the permission endpoint of the
// draft service and hands out HTTP-backed stores.
type HTTPBroker struct {
	mu         sync.Mutex
	base       string
	currentURL string
	nav        Navigator
	client     *http.Client
	perms      *cache.Cache
	cred       pdr.Credential
	log        *zap.Logger
}

// NewHTTPBroker creates a broker for the service at base. currentURL is the
// location the login service should return to; nav performs the hand-off.
func NewHTTPBroker(base, currentURL string, nav Navigator, log *zap.Logger) *HTTPBroker {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPBroker{
		base:       base,
		currentURL: currentURL,
		nav:        nav,
		client:     &http.Client{Timeout: defaultTimeout},
		perms:      cache.New(permCacheTTL, 2*permCacheTTL),
		log:        log,
	}
}

func (b *HTTPBroker) IsAuthorized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cred.Authorized()
}

// Credential returns the currently held authorization state.
func (b *HTTPBroker) Credential() pdr.Credential {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cred
}

func (b *HTTPBroker) AuthorizeEditing(ctx context.Context, resourceID string) (Store, error) {
	const op = "AuthorizeEditing"

	b.mu.Lock()
	if b.cred.Authorized() {
		token := b.cred.Token
		b.mu.Unlock()
		return NewHTTPStore(b.base, resourceID, token, b.log), nil
	}
	b.mu.Unlock()

	cred, ok := b.cachedPermission(resourceID)
	if !ok {
		fetched, err := b.fetchPermission(ctx, op, resourceID)
		if err != nil {
			return nil, err
		}
		cred = fetched
		if cred.Authenticated() {
			b.perms.Set("perm:"+resourceID, cred, cache.DefaultExpiration)
		}
	}

	switch {
	case cred.Authorized():
		b.mu.Lock()
		b.cred = cred
		b.mu.Unlock()
		return NewHTTPStore(b.base, resourceID, cred.Token, b.log), nil
	case cred.Authenticated():
		// authenticated but not authorized
		return nil, nil
	default:
		b.LoginUser()
		return nil, ErrLoginRedirect
	}
}

func (b *HTTPBroker) cachedPermission(resourceID string) (pdr.Credential, bool) {
	x, found := b.perms.Get("perm:" + resourceID)
	if !found {
		return pdr.Credential{}, false
	}
	cred, ok := x.(pdr.Credential)
	return cred, ok
}

func (b *HTTPBroker) fetchPermission(ctx context.Context, op, resourceID string) (pdr.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/auth/_perm/"+resourceID, nil)
	if err != nil {
		return pdr.Credential{}, systemError(op, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Warn("authorization service unreachable",
			zap.String("resource", resourceID), zap.Error(err))
		return pdr.Credential{}, connectionError(op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var cred pdr.Credential
		if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
			return pdr.Credential{}, systemError(op, err)
		}
		return cred, nil
	case http.StatusNotFound:
		// no permission info: handled like an unauthenticated response
		return pdr.Credential{}, nil
	default:
		b.log.Warn("authorization request failed",
			zap.String("resource", resourceID), zap.Int("status", resp.StatusCode))
		return pdr.Credential{}, statusError(op, resp.StatusCode)
	}
}

// LoginUser navigates to the authentication service with a return URL that
// carries the resume marker.
func (b *HTTPBroker) LoginUser() {
	dest := b.base + "/saml/login?redirectTo=" + url.QueryEscape(AddEditMarker(b.currentURL))
	b.log.Info("redirecting to login", zap.String("url", dest))
	b.nav.NavigateTo(dest)
}

// LocalBroker simulates authorization for contexts with no backing service.
// Any non-empty user id is treated as already authorized; stores are bound
// to pre-seeded in-memory records.
type LocalBroker struct {
	mu         sync.Mutex
	userID     string
	currentURL string
	nav        Navigator
	stores     map[string]*MemStore
	seeds      map[string]pdr.ResourceRecord
}

// NewLocalBroker creates a simulated broker over the given seed records.
func NewLocalBroker(userID, currentURL string, nav Navigator, seeds map[string]pdr.ResourceRecord) *LocalBroker {
	return &LocalBroker{
		userID:     userID,
		currentURL: currentURL,
		nav:        nav,
		stores:     map[string]*MemStore{},
		seeds:      seeds,
	}
}

func (b *LocalBroker) IsAuthorized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userID != ""
}

func (b *LocalBroker) AuthorizeEditing(ctx context.Context, resourceID string) (Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.userID == "" {
		// pseudo-redirect: same-tab URL rewrite
		if b.nav != nil {
			b.nav.NavigateTo(AddEditMarker(b.currentURL))
		}
		return nil, ErrLoginRedirect
	}

	store, ok := b.stores[resourceID]
	if !ok {
		seed, ok := b.seeds[resourceID]
		if !ok {
			seed = pdr.ResourceRecord{pdr.KeyID: resourceID}
		}
		store = NewMemStore(seed)
		b.stores[resourceID] = store
	}
	return store, nil
}

// UserID returns the simulated user identity.
func (b *LocalBroker) UserID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userID
}

// Credential reports the simulated identity with a placeholder token.
func (b *LocalBroker) Credential() pdr.Credential {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.userID == "" {
		return pdr.Credential{}
	}
	return pdr.Credential{UserID: b.userID, Token: "local"}
}
