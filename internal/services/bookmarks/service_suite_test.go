package bookmarks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/trackmarks/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type userStoreMock struct {
	mock.Mock
}

func (m *userStoreMock) GetUserWithBookmarks(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type trackingStoreMock struct {
	mock.Mock
}

func (m *trackingStoreMock) FindTrackingByCode(ctx context.Context, code string) (*models.Tracking, error) {
	args := m.Called(ctx, code)
	t, _ := args.Get(0).(*models.Tracking)
	return t, args.Error(1)
}

func (m *trackingStoreMock) GetTracking(ctx context.Context, id uint64, withHistory bool) (*models.Tracking, error) {
	args := m.Called(ctx, id, withHistory)
	t, _ := args.Get(0).(*models.Tracking)
	return t, args.Error(1)
}

type claimerMock struct {
	mock.Mock
}

func (m *claimerMock) Claim(ctx context.Context, trackingID uint64, ownerTag string) error {
	return m.Called(ctx, trackingID, ownerTag).Error(0)
}

func history(statuses ...string) []*models.TrackingEvent {
	out := make([]*models.TrackingEvent, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, &models.TrackingEvent{ID: uint64(i + 1), StatusText: st, EventTime: time.Unix(int64(i), 0).UTC()})
	}
	return out
}

type ServiceSuite struct {
	suite.Suite

	users     *userStoreMock
	trackings *trackingStoreMock
	claimer   *claimerMock
	svc       *Service
	created   time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.users = &userStoreMock{}
	s.trackings = &trackingStoreMock{}
	s.claimer = &claimerMock{}
	s.svc = New(slog.New(slog.NewTextHandler(io.Discard, nil)), s.users, s.trackings, s.claimer)
	s.created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) user(bookmarks ...*models.Bookmark) *models.User {
	return &models.User{ID: "u1", Phone: "+79990001122", Bookmarks: bookmarks}
}

func (s *ServiceSuite) linked(id uint64, track string) *models.Bookmark {
	return &models.Bookmark{
		ID:          id,
		UserID:      "u1",
		TrackingID:  u64Ptr(id * 100),
		Tracking:    &models.Tracking{ID: id * 100, Track: track},
		TrackNumber: track,
		CreatedAt:   s.created,
	}
}

func (s *ServiceSuite) TestUnknownUser_NotFound() {
	s.users.On("GetUserWithBookmarks", mock.Anything, "ghost").Return(nil, models.ErrUserNotFound).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "ghost", Page: 1})
	s.Require().ErrorIs(err, models.ErrUserNotFound)
	s.Require().Nil(page.UpdatedBookmarks)
	s.Require().Nil(page.NotFoundBookmarks)
	s.trackings.AssertNotCalled(s.T(), "FindTrackingByCode", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestNilUserIsNotFound() {
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(nil, nil).Once()
	_, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().ErrorIs(err, models.ErrUserNotFound)
}

func (s *ServiceSuite) TestEmptyUserID() {
	_, err := s.svc.GetUserBookmarks(context.Background(), Query{})
	s.Require().Error(err)
	s.users.AssertNotCalled(s.T(), "GetUserWithBookmarks", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestFallbackLookup_ClaimsThenRefetches() {
	b := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "TN123", Description: strPtr("gift"), CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Once()

	var order []string
	s.trackings.On("FindTrackingByCode", mock.Anything, "TN123").
		Return(&models.Tracking{ID: 77, Track: "TN123"}, nil).Once()
	s.claimer.On("Claim", mock.Anything, uint64(77), "+79990001122").
		Run(func(mock.Arguments) { order = append(order, "claim") }).
		Return(nil).Once()

	owner := "+79990001122"
	full := &models.Tracking{ID: 77, Track: "TN123", Owner: &owner, History: history("Принято", "В пути")}
	s.trackings.On("GetTracking", mock.Anything, uint64(77), true).
		Run(func(mock.Arguments) { order = append(order, "fetch") }).
		Return(full, nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Page: 1})
	s.Require().NoError(err)
	s.Require().Equal([]string{"claim", "fetch"}, order)

	s.Require().Len(page.UpdatedBookmarks, 1)
	got := page.UpdatedBookmarks[0]
	s.Require().Equal("TN123", got.TrackNumber)
	s.Require().Equal("gift", *got.Description)
	s.Require().Nil(got.TrackID)
	s.Require().Same(full, got.TrackDetails)
	s.Require().Len(got.History, 2)
	s.Require().Empty(page.NotFoundBookmarks)
	s.Require().Equal(1, page.TotalBookmarks)
	s.Require().Equal(1, page.TotalPages)

	s.users.AssertExpectations(s.T())
	s.trackings.AssertExpectations(s.T())
	s.claimer.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestFallbackLookup_NotFoundIsUnresolved() {
	b := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "TN999", Description: strPtr("shoes"), CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Once()
	s.trackings.On("FindTrackingByCode", mock.Anything, "TN999").Return(nil, nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Page: 1})
	s.Require().NoError(err)
	s.Require().Empty(page.UpdatedBookmarks)
	s.Require().Equal([]models.UnresolvedBookmark{{
		TrackNumber: "TN999",
		CreatedAt:   s.created,
		Description: strPtr("shoes"),
	}}, page.NotFoundBookmarks)
	s.Require().Equal(1, page.TotalBookmarks)
	s.Require().Equal(1, page.TotalPages)

	s.claimer.AssertNotCalled(s.T(), "Claim", mock.Anything, mock.Anything, mock.Anything)
	s.trackings.AssertNotCalled(s.T(), "GetTracking", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestReceivedDroppedOnBothPaths() {
	linked := s.linked(1, "LINKED")
	unlinked := &models.Bookmark{ID: 2, UserID: "u1", TrackNumber: "ORPHAN", CreatedAt: s.created}
	active := s.linked(3, "ACTIVE")
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(linked, unlinked, active), nil).Once()

	s.trackings.On("GetTracking", mock.Anything, uint64(100), true).
		Return(&models.Tracking{ID: 100, Track: "LINKED", History: history("В пути", models.StatusReceived)}, nil).Once()
	s.trackings.On("FindTrackingByCode", mock.Anything, "ORPHAN").
		Return(&models.Tracking{ID: 200, Track: "ORPHAN"}, nil).Once()
	s.claimer.On("Claim", mock.Anything, uint64(200), "+79990001122").Return(nil).Once()
	s.trackings.On("GetTracking", mock.Anything, uint64(200), true).
		Return(&models.Tracking{ID: 200, Track: "ORPHAN", History: history(models.StatusReceived)}, nil).Once()
	s.trackings.On("GetTracking", mock.Anything, uint64(300), true).
		Return(&models.Tracking{ID: 300, Track: "ACTIVE", History: history("В пути")}, nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Page: 1})
	s.Require().NoError(err)
	s.Require().Len(page.UpdatedBookmarks, 1)
	s.Require().Equal("ACTIVE", page.UpdatedBookmarks[0].TrackNumber)
	s.Require().Empty(page.NotFoundBookmarks)
	s.Require().Equal(1, page.TotalBookmarks)
	s.trackings.AssertExpectations(s.T())
	s.claimer.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestLinkedBookmarkSkipsLookupAndClaim() {
	b := s.linked(1, "LINKED")
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Once()
	s.trackings.On("GetTracking", mock.Anything, uint64(100), true).
		Return(&models.Tracking{ID: 100, Track: "LINKED"}, nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().NoError(err)
	s.Require().Len(page.UpdatedBookmarks, 1)
	s.Require().Equal(uint64(100), *page.UpdatedBookmarks[0].TrackID)
	s.Require().NotNil(page.UpdatedBookmarks[0].History)

	s.trackings.AssertNotCalled(s.T(), "FindTrackingByCode", mock.Anything, mock.Anything)
	s.claimer.AssertNotCalled(s.T(), "Claim", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestStoreErrorFailsWholeRequest() {
	ok := s.linked(1, "OK")
	broken := &models.Bookmark{ID: 2, UserID: "u1", TrackNumber: "BROKEN", CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(ok, broken), nil).Once()
	s.trackings.On("GetTracking", mock.Anything, uint64(100), true).
		Return(&models.Tracking{ID: 100, Track: "OK"}, nil).Once()
	want := errors.New("connection refused")
	s.trackings.On("FindTrackingByCode", mock.Anything, "BROKEN").Return(nil, want).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().ErrorIs(err, want)
	s.Require().Nil(page.UpdatedBookmarks)
}

func (s *ServiceSuite) TestClaimErrorStopsBeforeRefetch() {
	b := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "TN1", CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Once()
	s.trackings.On("FindTrackingByCode", mock.Anything, "TN1").Return(&models.Tracking{ID: 5}, nil).Once()
	want := errors.New("update failed")
	s.claimer.On("Claim", mock.Anything, uint64(5), "+79990001122").Return(want).Once()

	_, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().ErrorIs(err, want)
	s.trackings.AssertNotCalled(s.T(), "GetTracking", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestDanglingLinkIsError() {
	b := s.linked(1, "GONE")
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Once()
	s.trackings.On("GetTracking", mock.Anything, uint64(100), true).Return(nil, nil).Once()

	_, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().ErrorIs(err, models.ErrTrackingNotFound)
}

func (s *ServiceSuite) TestEmptySearchEqualsNoSearch() {
	b := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "TN999", CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(b), nil).Twice()
	s.trackings.On("FindTrackingByCode", mock.Anything, "TN999").Return(nil, nil).Twice()

	withBlank, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Search: "   "})
	s.Require().NoError(err)
	without, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().NoError(err)
	s.Require().Equal(without, withBlank)
	s.Require().Equal(1, without.TotalBookmarks)
}

func (s *ServiceSuite) TestSearchNarrowsBeforeResolving() {
	moscow := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "AAA", Description: strPtr("moscow warehouse"), CreatedAt: s.created}
	kazan := &models.Bookmark{ID: 2, UserID: "u1", TrackNumber: "BBB", Description: strPtr("kazan"), CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(moscow, kazan), nil).Once()
	s.trackings.On("FindTrackingByCode", mock.Anything, "AAA").Return(nil, nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Search: " Moscow "})
	s.Require().NoError(err)
	s.Require().Len(page.NotFoundBookmarks, 1)
	s.Require().Equal("AAA", page.NotFoundBookmarks[0].TrackNumber)
	s.trackings.AssertNotCalled(s.T(), "FindTrackingByCode", mock.Anything, "BBB")
}

func (s *ServiceSuite) TestPaginationOverEnrichedOnly() {
	var bs []*models.Bookmark
	for i := 1; i <= 25; i++ {
		b := s.linked(uint64(i), "T"+strconv.Itoa(i))
		bs = append(bs, b)
		s.trackings.On("GetTracking", mock.Anything, uint64(i*100), true).
			Return(&models.Tracking{ID: uint64(i * 100), Track: b.TrackNumber}, nil).Once()
	}
	for i := 26; i <= 28; i++ {
		tn := "MISSING" + strconv.Itoa(i)
		bs = append(bs, &models.Bookmark{ID: uint64(i), UserID: "u1", TrackNumber: tn, CreatedAt: s.created})
		s.trackings.On("FindTrackingByCode", mock.Anything, tn).Return(nil, nil).Once()
	}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(bs...), nil).Once()

	page, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Page: 2})
	s.Require().NoError(err)
	s.Require().Len(page.UpdatedBookmarks, 5)
	s.Require().Equal("T21", page.UpdatedBookmarks[0].TrackNumber)
	s.Require().Equal("T25", page.UpdatedBookmarks[4].TrackNumber)
	s.Require().Len(page.NotFoundBookmarks, 3)
	s.Require().Equal(28, page.TotalBookmarks)
	s.Require().Equal(2, page.TotalPages)
}

func (s *ServiceSuite) TestConcurrentResolutionKeepsOrder() {
	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), s.users, s.trackings, s.claimer).WithConcurrency(8)

	var bs []*models.Bookmark
	for i := 1; i <= 30; i++ {
		b := s.linked(uint64(i), "T"+strconv.Itoa(i))
		bs = append(bs, b)
		// обратная задержка: поздние закладки завершаются раньше
		delay := time.Duration(31-i) * time.Millisecond
		s.trackings.On("GetTracking", mock.Anything, uint64(i*100), true).
			After(delay).
			Return(&models.Tracking{ID: uint64(i * 100), Track: b.TrackNumber}, nil).Once()
	}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(bs...), nil).Once()

	page, err := svc.GetUserBookmarks(context.Background(), Query{UserID: "u1", Page: 1})
	s.Require().NoError(err)
	s.Require().Len(page.UpdatedBookmarks, 20)
	for i, e := range page.UpdatedBookmarks {
		s.Require().Equal("T"+strconv.Itoa(i+1), e.TrackNumber)
	}
	s.Require().Equal(30, page.TotalBookmarks)
}

func (s *ServiceSuite) TestSequentialStopsAfterFirstError() {
	first := &models.Bookmark{ID: 1, UserID: "u1", TrackNumber: "FIRST", CreatedAt: s.created}
	second := &models.Bookmark{ID: 2, UserID: "u1", TrackNumber: "SECOND", CreatedAt: s.created}
	s.users.On("GetUserWithBookmarks", mock.Anything, "u1").Return(s.user(first, second), nil).Once()

	var mu sync.Mutex
	var seen []string
	s.trackings.On("FindTrackingByCode", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			seen = append(seen, args.String(1))
			mu.Unlock()
		}).
		Return(nil, errors.New("store unavailable"))

	_, err := s.svc.GetUserBookmarks(context.Background(), Query{UserID: "u1"})
	s.Require().Error(err)
	s.Require().Equal([]string{"FIRST"}, seen)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
