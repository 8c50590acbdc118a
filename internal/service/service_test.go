package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/fra_portal/internal/client"
	"github.com/rryowa/fra_portal/internal/storage/memory"
	"github.com/rryowa/fra_portal/internal/testutil/fakeapi"
	"github.com/rryowa/fra_portal/internal/util"
)

type testEnv struct {
	backend *fakeapi.Server
	store   *memory.SessionStore
	client  *client.Client
	auth    *AuthService
	portal  *PortalService
	dss     *DSSService
	maps    *MapService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := fakeapi.New(t)
	store := memory.NewSessionStore(nil)
	log := zap.NewNop().Sugar()

	c, err := client.New(&util.ClientConfig{BaseURL: backend.URL(), Timeout: 5 * time.Second}, store, log)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	portal := NewPortalService(c, log)
	return &testEnv{
		backend: backend,
		store:   store,
		client:  c,
		auth:    NewAuthService(c, store, log),
		portal:  portal,
		dss:     NewDSSService(c, portal, log),
		maps:    NewMapService(portal, log),
	}
}

func (e *testEnv) login(t *testing.T, identifier, password string) {
	t.Helper()
	if _, err := e.auth.Login(context.Background(), identifier, password); err != nil {
		t.Fatalf("login as %s: %v", identifier, err)
	}
}
