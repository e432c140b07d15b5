//go:build integration

package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/E-m-i-n-e-n-c-e/Revent/pkg/testutil/containers"
)

type NotificationsStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	ctx   context.Context
}

func TestNotificationsStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(NotificationsStoreSuite))
}

func (s *NotificationsStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.DB)
}

func (s *NotificationsStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "notifications"))
}

func (s *NotificationsStoreSuite) TestRecordAndListRecentByUser() {
	for _, title := range []string{"first", "second", "third"} {
		s.Require().NoError(s.store.Record(s.ctx, Notification{
			UserID: "user-1",
			Title:  title,
			Body:   "body",
		}))
	}
	s.Require().NoError(s.store.Record(s.ctx, Notification{
		UserID: "user-2",
		Title:  "other user",
		Body:   "body",
	}))

	since := time.Now().Add(-48 * time.Hour)
	got, err := s.store.ListRecentByUser(s.ctx, "user-1", since, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	for _, n := range got {
		s.Equal("user-1", n.UserID)
	}
	s.False(got[0].Time.Before(got[1].Time))
}

func (s *NotificationsStoreSuite) TestListRecentByUserHonorsSince() {
	s.Require().NoError(s.store.Record(s.ctx, Notification{
		UserID: "user-3",
		Title:  "fresh",
		Body:   "body",
	}))

	got, err := s.store.ListRecentByUser(s.ctx, "user-3", time.Now().Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *NotificationsStoreSuite) TestListRecentByUserEmpty() {
	got, err := s.store.ListRecentByUser(s.ctx, "nobody", time.Now().Add(-time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(got)
}
