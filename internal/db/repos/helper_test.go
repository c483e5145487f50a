package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anudishu/promote-cleanup/internal/db"
	"github.com/anudishu/promote-cleanup/internal/db/models"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	runRepo *RunRepository
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// Each test gets its own in-memory database
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")
	require.NoError(s.T(), db.Migrate(gdb), "Failed to run database migrations")

	s.db = gdb
	s.runRepo = NewRunRepository(s.db)
	s.ctx = context.Background()
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// Helper methods for creating test data

func (s *DBRepositoryTestSuite) createTestRun(instance string) *models.Run {
	run := &models.Run{
		RunID:              uuid.NewString(),
		Source:             "pubsub",
		ImageID:            "rhel9",
		ScanResult:         "Pass",
		ValidationInstance: instance,
	}
	s.Require().NoError(s.runRepo.Create(s.ctx, run))
	return run
}
