package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// surrealAddrEnv points tests at an already running SurrealDB instead of a container.
const surrealAddrEnv = "VIRE_LEDGER_TEST_SURREALDB"

var (
	surrealOnce sync.Once
	surrealAddr string
	surrealErr  error
)

// surrealAddress returns the RPC address of a SurrealDB shared by every test
// in the package, starting a container on first use.
func surrealAddress(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("SurrealDB tests skipped in short mode")
	}

	surrealOnce.Do(func() {
		if addr := os.Getenv(surrealAddrEnv); addr != "" {
			surrealAddr = addr
			return
		}

		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealErr = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			surrealErr = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			surrealErr = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}
		surrealAddr = fmt.Sprintf("ws://%s:%s/rpc", host, port.Port())
	})

	if surrealErr != nil {
		t.Skipf("SurrealDB unavailable: %v", surrealErr)
	}
	return surrealAddr
}

// testConfig returns a config that isolates each test in its own database.
// SurrealDB rejects "/" in database names, which subtests produce.
func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Address = surrealAddress(t)
	cfg.Storage.Namespace = "ledger_test"
	cfg.Storage.Database = fmt.Sprintf("t_%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), time.Now().UnixNano()%100000)
	cfg.Storage.Username = "root"
	cfg.Storage.Password = "root"
	return cfg
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(common.NewSilentLogger(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}
