package background

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/nearhelp/nearhelp-api/external/fcm"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/mocks"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
	"github.com/nearhelp/nearhelp-api/store/memstore"
	"github.com/nearhelp/nearhelp-api/utils"
)

var amman = schema.Location{Latitude: 31.95, Longitude: 35.91}

func north(meters float64) schema.Location {
	return schema.Location{Latitude: amman.Latitude + meters/111195, Longitude: amman.Longitude}
}

type DispatcherTestSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	pusher     *mocks.MockPusher
	store      *memstore.Store
	matcher    *matching.Service
	dispatcher *Dispatcher
}

func (s *DispatcherTestSuite) SetupSuite() {
	s.NoError(utils.InitI18NBundle("../i18n"))
}

func (s *DispatcherTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.pusher = mocks.NewMockPusher(s.ctrl)
	s.store = memstore.New()
	s.matcher = matching.NewService(s.store, s.store, geo.NewMemoryIndex(), matching.Config{})
	s.dispatcher = NewDispatcher(s.store, s.store, s.matcher, s.pusher, "en")
}

func (s *DispatcherTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DispatcherTestSuite) addUser(id string, role schema.Role, token string, loc *schema.Location) {
	ctx := context.Background()
	s.NoError(s.store.CreateUser(ctx, &schema.User{ID: id, Role: role, Active: true, DeviceToken: token}))
	if loc != nil {
		_, err := s.matcher.UpdateVolunteerLocation(ctx, id, *loc)
		s.NoError(err)
	}
}

func (s *DispatcherTestSuite) addRequest(owner string) *schema.Request {
	r := &schema.Request{Owner: owner, Category: schema.CategoryReading, Location: amman, Status: schema.StatusPending}
	s.NoError(s.store.CreateRequest(context.Background(), r))
	return r
}

func (s *DispatcherTestSuite) TestNotifyNewRequest() {
	s.addUser("owner", schema.RoleRequester, "token-owner", nil)
	s.addUser("vol-near", schema.RoleVolunteer, "token-near", &amman)
	far := north(3000)
	s.addUser("vol-far", schema.RoleVolunteer, "token-far", &far)
	outside := north(9000)
	s.addUser("vol-outside", schema.RoleVolunteer, "token-outside", &outside)
	s.addUser("vol-no-token", schema.RoleVolunteer, "", &amman)
	r := s.addRequest("owner")

	s.pusher.EXPECT().
		SendBatch(gomock.Any(), []string{"token-near", "token-far"}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, tokens []string, msg fcm.Message) ([]fcm.Outcome, error) {
			s.Equal("New Assistance Request", msg.Title)
			s.Equal("Someone near you needs help with reading", msg.Body)
			s.Equal(r.ID, msg.Data["request_id"])
			s.Equal(NotificationNewRequest, msg.Data["type"])
			return []fcm.Outcome{{Token: tokens[0]}, {Token: tokens[1], Err: fmt.Errorf("unregistered")}}, nil
		})

	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))

	got, err := s.store.GetRequest(context.Background(), r.ID)
	s.NoError(err)
	// a failed delivery still counts as notified
	s.ElementsMatch([]string{"vol-near", "vol-far"}, []string(got.NotifiedVolunteers))
}

func (s *DispatcherTestSuite) TestNotifyNewRequestAtMostOnce() {
	s.addUser("vol-a", schema.RoleVolunteer, "token-a", &amman)
	r := s.addRequest("owner")

	s.pusher.EXPECT().SendBatch(gomock.Any(), []string{"token-a"}, gomock.Any()).Return([]fcm.Outcome{{Token: "token-a"}}, nil).Times(1)
	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))

	s.addUser("vol-b", schema.RoleVolunteer, "token-b", &amman)
	s.pusher.EXPECT().SendBatch(gomock.Any(), []string{"token-b"}, gomock.Any()).Return([]fcm.Outcome{{Token: "token-b"}}, nil).Times(1)
	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))

	// everyone has been alerted, nothing is sent
	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))
}

func (s *DispatcherTestSuite) TestNotifyNewRequestExcludesOwner() {
	s.addUser("vol-owner", schema.RoleVolunteer, "token-owner", &amman)
	r := s.addRequest("vol-owner")

	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))
}

func (s *DispatcherTestSuite) TestNotifyNewRequestSkipsClosedRequest() {
	s.addUser("vol-a", schema.RoleVolunteer, "token-a", &amman)
	r := s.addRequest("owner")
	_, err := s.store.Transition(context.Background(), r.ID, schema.StatusPending, schema.StatusCancelled, store.Patch{})
	s.NoError(err)

	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))
}

func (s *DispatcherTestSuite) TestNotifyNewRequestTransportDown() {
	s.addUser("vol-a", schema.RoleVolunteer, "token-a", &amman)
	r := s.addRequest("owner")

	s.pusher.EXPECT().SendBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("connection refused"))
	s.NoError(s.dispatcher.NotifyNewRequest(context.Background(), r.ID))

	got, err := s.store.GetRequest(context.Background(), r.ID)
	s.NoError(err)
	s.Equal([]string{"vol-a"}, []string(got.NotifiedVolunteers))
}

func (s *DispatcherTestSuite) TestNotifyNewRequestMissing() {
	err := s.dispatcher.NotifyNewRequest(context.Background(), "missing")
	s.Equal(store.ErrRequestNotFound, err)
}

func (s *DispatcherTestSuite) TestNotifyAttended() {
	s.addUser("owner", schema.RoleRequester, "token-owner", nil)
	r := s.addRequest("owner")
	vol := "vol-a"
	_, err := s.store.Transition(context.Background(), r.ID, schema.StatusPending, schema.StatusAttended, store.Patch{AssignedVolunteer: &vol})
	s.NoError(err)

	s.pusher.EXPECT().
		SendBatch(gomock.Any(), []string{"token-owner"}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, tokens []string, msg fcm.Message) ([]fcm.Outcome, error) {
			s.Equal(NotificationRequestAttended, msg.Data["type"])
			s.Equal("Help is on the way", msg.Title)
			return []fcm.Outcome{{Token: tokens[0]}}, nil
		})

	s.NoError(s.dispatcher.NotifyStatusChange(context.Background(), r.ID, schema.StatusAttended))
}

func (s *DispatcherTestSuite) TestNotifyFinished() {
	s.addUser("vol-a", schema.RoleVolunteer, "token-a", nil)
	r := s.addRequest("owner")
	vol := "vol-a"
	_, err := s.store.Transition(context.Background(), r.ID, schema.StatusPending, schema.StatusAttended, store.Patch{AssignedVolunteer: &vol})
	s.NoError(err)
	_, err = s.store.Transition(context.Background(), r.ID, schema.StatusAttended, schema.StatusFinished, store.Patch{})
	s.NoError(err)

	s.pusher.EXPECT().SendBatch(gomock.Any(), []string{"token-a"}, gomock.Any()).Return([]fcm.Outcome{{Token: "token-a"}}, nil)
	s.NoError(s.dispatcher.NotifyStatusChange(context.Background(), r.ID, schema.StatusFinished))
}

func (s *DispatcherTestSuite) TestNotifyCancelledToNotifiedVolunteers() {
	s.addUser("vol-a", schema.RoleVolunteer, "token-a", nil)
	s.addUser("vol-b", schema.RoleVolunteer, "", nil)
	r := s.addRequest("owner")
	s.NoError(s.store.AddNotifiedVolunteers(context.Background(), r.ID, []string{"vol-a", "vol-b"}))
	_, err := s.store.Transition(context.Background(), r.ID, schema.StatusPending, schema.StatusCancelled, store.Patch{})
	s.NoError(err)

	s.pusher.EXPECT().
		SendBatch(gomock.Any(), []string{"token-a"}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, tokens []string, msg fcm.Message) ([]fcm.Outcome, error) {
			s.Equal(NotificationRequestCancelled, msg.Data["type"])
			return []fcm.Outcome{{Token: tokens[0]}}, nil
		})

	s.NoError(s.dispatcher.NotifyStatusChange(context.Background(), r.ID, schema.StatusCancelled))
}

func (s *DispatcherTestSuite) TestLocalizedMessage() {
	d := NewDispatcher(s.store, s.store, s.matcher, s.pusher, "ar")
	msg := d.message(NotificationNewRequest, &schema.Request{ID: "r", Category: schema.CategoryShopping})
	s.Equal("طلب مساعدة جديد", msg.Title)
	s.Contains(msg.Body, "التسوق")
	s.Equal("shopping", msg.Data["category"])
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}
