package test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anudishu/promote-cleanup/internal/api/v1/client"
	"github.com/anudishu/promote-cleanup/internal/app"
	"github.com/anudishu/promote-cleanup/internal/db"
	"github.com/anudishu/promote-cleanup/internal/db/repos"
	"github.com/anudishu/promote-cleanup/internal/workflow"
	"github.com/anudishu/promote-cleanup/test/mocks"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// Option configures a Suite before the server starts
type Option func(*Suite)

// WithWorkflowOptions lets a test adjust the workflow timings
func WithWorkflowOptions(fn func(*workflow.Options)) Option {
	return func(s *Suite) {
		fn(&s.workflowOpts)
	}
}

// WithoutLedger runs the server with no database
func WithoutLedger() Option {
	return func(s *Suite) {
		s.noLedger = true
	}
}

// Suite encapsulates all components needed for integration testing:
//   - In-memory database
//   - Real API server
//   - Real API client
//   - Mocked compute backend
type Suite struct {
	t *testing.T

	// Server components
	App    *app.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Database components; nil with WithoutLedger
	DB      *gorm.DB
	RunRepo *repos.RunRepository

	// Mock compute backend
	Compute *mocks.MockCompute

	workflowOpts workflow.Options
	noLedger     bool

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewSuite starts a suite. Call Cleanup when done.
func NewSuite(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	s := &Suite{
		t:            t,
		Compute:      mocks.NewMockCompute(),
		workflowOpts: workflow.DefaultOptions(),
		ctx:          ctx,
		cancelFunc:   cancel,
	}
	s.workflowOpts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	for _, opt := range opts {
		opt(s)
	}

	if !s.noLedger {
		dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		require.NoError(t, err)
		require.NoError(t, db.Migrate(gdb))
		s.DB = gdb
		s.RunRepo = repos.NewRunRepository(gdb)
	}

	s.App = app.Assemble(s.Compute, s.workflowOpts, s.DB)
	s.Server = httptest.NewServer(adaptor.FiberApp(s.App.Server()))

	apiClient, err := client.NewClient(&client.ClientOptions{
		BaseURL: s.Server.URL,
		Timeout: DefaultTestTimeout,
	})
	require.NoError(t, err)
	s.APIClient = apiClient

	return s
}

// Context returns the suite's context, canceled on Cleanup
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Cleanup stops the server and closes the ledger
func (s *Suite) Cleanup() {
	if s.Server != nil {
		s.Server.Close()
	}
	if s.App != nil {
		_ = s.App.Close()
	}
	s.cancelFunc()
}

// Require returns a require.Assertions bound to the suite's test
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}
