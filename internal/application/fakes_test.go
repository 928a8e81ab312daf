package application

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/ports"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

type fakeClerk struct {
	calls   atomic.Int32
	respond func(token string) (*domain.ClerkClientResponse, error)
}

func (c *fakeClerk) GetClient(ctx context.Context, token string) (*domain.ClerkClientResponse, error) {
	c.calls.Add(1)
	return c.respond(token)
}

func clerkResponse(sessions ...domain.ClerkSession) *domain.ClerkClientResponse {
	resp := &domain.ClerkClientResponse{}
	resp.Response.Sessions = sessions
	return resp
}

func ownerSession() domain.ClerkSession {
	return domain.ClerkSession{
		ID: "sess_1",
		User: domain.ClerkUser{
			ImageURL:       "https://img.clerk.com/u1",
			EmailAddresses: []domain.ClerkEmailAddress{{EmailAddress: "owner@example.com"}},
		},
		PublicUserData: domain.PublicUserData{
			Identifier: "owner-id",
			HasImage:   true,
			ImageURL:   "https://img.clerk.com/p1",
		},
	}
}

type fakePopup struct {
	messages chan domain.WindowEvent
	unloaded chan struct{}
	stopped  atomic.Bool
	closed   atomic.Bool
}

func newFakePopup() *fakePopup {
	return &fakePopup{
		messages: make(chan domain.WindowEvent, 8),
		unloaded: make(chan struct{}),
	}
}

func (p *fakePopup) Messages() <-chan domain.WindowEvent { return p.messages }
func (p *fakePopup) Unloaded() <-chan struct{}           { return p.unloaded }
func (p *fakePopup) StopListening()                      { p.stopped.Store(true) }
func (p *fakePopup) Close() {
	p.closed.Store(true)
	p.StopListening()
}

type fakeOpener struct {
	popup *fakePopup
	err   error
	spec  domain.PopupSpec
}

func (o *fakeOpener) Open(ctx context.Context, spec domain.PopupSpec) (ports.Popup, error) {
	o.spec = spec
	if o.err != nil {
		return nil, o.err
	}
	return o.popup, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessions(sessions ...*domain.Session) *fakeSessions {
	s := &fakeSessions{sessions: make(map[string]*domain.Session)}
	for _, session := range sessions {
		copied := *session
		s.sessions[session.ID] = &copied
	}
	return s
}

func (s *fakeSessions) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeSessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *fakeSessions) SetClerkDbJwt(ctx context.Context, id string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	session.ClerkDbJwt = token
	return nil
}

func (s *fakeSessions) ClearClerkDbJwt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.ClerkDbJwt = ""
	}
	return nil
}

func (s *fakeSessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *fakeSessions) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if session.Shop == shop {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeSessions) token(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		return session.ClerkDbJwt
	}
	return ""
}

type fakeFrames struct {
	mu     sync.Mutex
	nextID int64
	frames map[int64]*domain.Frame
}

func newFakeFrames() *fakeFrames {
	return &fakeFrames{frames: make(map[int64]*domain.Frame)}
}

func (r *fakeFrames) Create(ctx context.Context, frame *domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	frame.ID = r.nextID
	frame.Scans = 0
	copied := *frame
	r.frames[frame.ID] = &copied
	return nil
}

func (r *fakeFrames) Update(ctx context.Context, frame *domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.frames[frame.ID]
	if !ok || existing.Shop != frame.Shop {
		return domain.ErrNotFound
	}
	copied := *frame
	copied.Scans = existing.Scans
	r.frames[frame.ID] = &copied
	return nil
}

func (r *fakeFrames) GetByID(ctx context.Context, id int64) (*domain.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame, ok := r.frames[id]
	if !ok {
		return nil, nil
	}
	copied := *frame
	return &copied, nil
}

func (r *fakeFrames) ListByShop(ctx context.Context, shop string) ([]*domain.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var frames []*domain.Frame
	for _, frame := range r.frames {
		if frame.Shop == shop {
			copied := *frame
			frames = append(frames, &copied)
		}
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].ID > frames[j].ID })
	return frames, nil
}

func (r *fakeFrames) Delete(ctx context.Context, shop string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame, ok := r.frames[id]
	if !ok || frame.Shop != shop {
		return domain.ErrNotFound
	}
	delete(r.frames, id)
	return nil
}

func (r *fakeFrames) IncrementScans(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	frame, ok := r.frames[id]
	if !ok {
		return domain.ErrNotFound
	}
	frame.Scans++
	return nil
}

func (r *fakeFrames) UpdateProductHandle(ctx context.Context, shop string, productID string, handle string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, frame := range r.frames {
		if frame.Shop == shop && frame.ProductID == productID && frame.ProductHandle != handle {
			frame.ProductHandle = handle
			n++
		}
	}
	return n, nil
}

func (r *fakeFrames) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, frame := range r.frames {
		if frame.Shop == shop {
			delete(r.frames, id)
			n++
		}
	}
	return n, nil
}

type fakeShopify struct {
	product  *shopify.Product
	err      error
	verified bool
	token    string
}

func (f *fakeShopify) AuthorizeURL(shop string, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state
}

func (f *fakeShopify) VerifyCallback(u *url.URL) (bool, error) { return f.verified, nil }

func (f *fakeShopify) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	return f.token, f.err
}

func (f *fakeShopify) VerifyWebhook(r *http.Request) bool { return f.verified }

func (f *fakeShopify) GetProduct(ctx context.Context, shop string, accessToken string, productID uint64) (*shopify.Product, error) {
	return f.product, f.err
}
