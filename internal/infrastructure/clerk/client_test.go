package clerk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"target-onchain-shopify-app/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientBody = `{
  "response": {
    "sessions": [{
      "id": "sess_1",
      "user": {
        "image_url": "https://img.clerk.com/u1",
        "email_addresses": [{"email_address": "owner@example.com"}],
        "web3_wallets": [{"web3_wallet": "0xabc"}]
      },
      "public_user_data": {"identifier": "owner@example.com", "first_name": "Ada", "has_image": true, "image_url": "https://img.clerk.com/p1"}
    }]
  }
}`

func TestClient_GetClient(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/client", r.URL.Path)
		gotToken = r.URL.Query().Get("__clerk_db_jwt")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clientBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client(), nil, zerolog.Nop())
	resp, err := c.GetClient(context.Background(), "dvb_123")
	require.NoError(t, err)

	assert.Equal(t, "dvb_123", gotToken)
	session := resp.FirstSession()
	require.NotNil(t, session)
	assert.Equal(t, "owner@example.com", session.PrimaryEmail())
	assert.Equal(t, "https://img.clerk.com/u1", session.User.ImageURL)
	assert.Equal(t, "0xabc", session.User.Web3Wallets[0].Web3Wallet)
}

func TestClient_GetClient_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revoked", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())
	_, err := c.GetClient(context.Background(), "dvb_123")

	var statusErr *domain.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestClient_GetClient_EmptyToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", nil, nil, zerolog.Nop())
	_, err := c.GetClient(context.Background(), "")
	assert.Error(t, err)
}

// blockingServer answers clientBody once release is closed and reports each
// hit on started.
func blockingServer(t *testing.T, hits *int32, started chan<- struct{}, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clientBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetClient_SharesConcurrentCalls(t *testing.T) {
	var hits int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := blockingServer(t, &hits, started, release)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())

	const callers = 5
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	call := func() {
		defer wg.Done()
		resp, err := c.GetClient(context.Background(), "dvb_shared")
		if err == nil && resp.FirstSession() == nil {
			err = errors.New("no session")
		}
		errs <- err
	}

	wg.Add(1)
	go call()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go call()
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_GetClient_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var hits int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := blockingServer(t, &hits, started, release)
	c := NewClient(srv.URL, srv.Client(), nil, zerolog.Nop())

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetClient(shortCtx, "dvb_shared")
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		resp, err := c.GetClient(context.Background(), "dvb_shared")
		if err == nil && resp.FirstSession() == nil {
			err = errors.New("no session")
		}
		secondErr <- err
	}()

	err := <-firstErr
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
