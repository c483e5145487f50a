package repos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/anudishu/promote-cleanup/internal/db/models"
)

type RunRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestRunRepository(t *testing.T) {
	suite.Run(t, new(RunRepositoryTestSuite))
}

func (s *RunRepositoryTestSuite) TestCreateAndGet() {
	run := s.createTestRun("vm-1")
	s.Equal(models.RunStatusPending, run.Status)
	s.NotZero(run.ID)

	got, err := s.runRepo.GetByRunID(s.ctx, run.RunID)
	s.Require().NoError(err)
	s.Equal("vm-1", got.ValidationInstance)
	s.Equal("rhel9", got.ImageID)
	s.Equal(models.RunStatusPending, got.Status)
}

func (s *RunRepositoryTestSuite) TestCreateRequiresRunID() {
	err := s.runRepo.Create(s.ctx, &models.Run{Source: "cli"})
	s.Error(err)
}

func (s *RunRepositoryTestSuite) TestCreateDuplicateRunID() {
	run := s.createTestRun("vm-1")
	err := s.runRepo.Create(s.ctx, &models.Run{RunID: run.RunID, Source: "cli"})
	s.Error(err)
}

func (s *RunRepositoryTestSuite) TestGetMissing() {
	_, err := s.runRepo.GetByRunID(s.ctx, "missing")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RunRepositoryTestSuite) TestLifecycle() {
	run := s.createTestRun("vm-1")
	started := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	s.Require().NoError(s.runRepo.MarkRunning(s.ctx, run.RunID, started))
	got, err := s.runRepo.GetByRunID(s.ctx, run.RunID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusRunning, got.Status)
	s.Require().NotNil(got.StartedAt)
	s.True(started.Equal(*got.StartedAt))

	finished := started.Add(3 * time.Minute)
	s.Require().NoError(s.runRepo.Finish(s.ctx, run.RunID, models.RunStatusSucceeded,
		"rhel9-promoted-20240305-140709", "", "", finished))
	got, err = s.runRepo.GetByRunID(s.ctx, run.RunID)
	s.Require().NoError(err)
	s.Equal(models.RunStatusSucceeded, got.Status)
	s.Equal("rhel9-promoted-20240305-140709", got.PromotedImage)
	s.Require().NotNil(got.FinishedAt)
	s.True(finished.Equal(*got.FinishedAt))
}

func (s *RunRepositoryTestSuite) TestFinishRejectsNonFinalStatus() {
	run := s.createTestRun("vm-1")
	err := s.runRepo.Finish(s.ctx, run.RunID, models.RunStatusRunning, "", "", "", time.Now())
	s.Error(err)
}

func (s *RunRepositoryTestSuite) TestUpdateMissingRun() {
	err := s.runRepo.MarkRunning(s.ctx, "missing", time.Now())
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *RunRepositoryTestSuite) TestList() {
	first := s.createTestRun("vm-1")
	second := s.createTestRun("vm-2")
	third := s.createTestRun("vm-1")
	s.Require().NoError(s.runRepo.Finish(s.ctx, second.RunID, models.RunStatusFailed, "", "", "quota", time.Now()))

	runs, err := s.runRepo.List(s.ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(runs, 3)
	s.Equal(third.RunID, runs[0].RunID)
	s.Equal(first.RunID, runs[2].RunID)

	runs, err = s.runRepo.List(s.ctx, &models.ListOptions{ValidationInstance: "vm-1"})
	s.Require().NoError(err)
	s.Len(runs, 2)

	failed := models.RunStatusFailed
	runs, err = s.runRepo.List(s.ctx, &models.ListOptions{Status: &failed})
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal("quota", runs[0].Error)

	runs, err = s.runRepo.List(s.ctx, &models.ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(second.RunID, runs[0].RunID)
}
