package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/nearhelp/nearhelp-api/fault"
	"github.com/nearhelp/nearhelp-api/geo"
	"github.com/nearhelp/nearhelp-api/lifecycle"
	"github.com/nearhelp/nearhelp-api/matching"
	"github.com/nearhelp/nearhelp-api/mocks"
	"github.com/nearhelp/nearhelp-api/schema"
	"github.com/nearhelp/nearhelp-api/store"
	"github.com/nearhelp/nearhelp-api/store/memstore"
)

type response struct {
	Success bool            `json:"success"`
	Code    int64           `json:"code"`
	Message string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

type ServerTestSuite struct {
	suite.Suite
	key     *rsa.PrivateKey
	ctrl    *gomock.Controller
	store   *memstore.Store
	index   *geo.MemoryIndex
	server  *Server
	router  *gin.Engine
	trigger *mocks.MockTrigger
}

func (s *ServerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.key = key

	viper.Set("server.apikey.admin", "admin-key")
	viper.Set("server.apikey.metric", "metric-key")
	viper.Set("clients.ios.minimum_client_version", 2)
	viper.Set("clients.android.minimum_client_version", 2)
}

func (s *ServerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.trigger = mocks.NewMockTrigger(s.ctrl)
	s.trigger.EXPECT().BroadcastNewRequest(gomock.Any()).Return(nil).AnyTimes()
	s.trigger.EXPECT().NotifyStatusChange(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s.store = memstore.New()
	s.index = geo.NewMemoryIndex()
	matcher := matching.NewService(s.store, s.store, s.index, matching.Config{})
	engine := lifecycle.NewEngine(s.store, s.store, matcher, s.trigger, nil)

	s.server = NewServer(s.store, engine, matcher, s.key)
	s.router = s.server.setupRouter()

	s.addUser("requester", schema.RoleRequester, nil)
	s.addUser("stranger", schema.RoleRequester, nil)
	s.addUser("volunteer-1", schema.RoleVolunteer, &schema.Location{Latitude: 31.951, Longitude: 35.91})
	s.addUser("volunteer-2", schema.RoleVolunteer, &schema.Location{Latitude: 31.952, Longitude: 35.91})
	s.addUser("admin", schema.RoleAdmin, nil)
}

func (s *ServerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServerTestSuite) addUser(id string, role schema.Role, loc *schema.Location) {
	ctx := context.Background()
	s.Require().NoError(s.store.CreateUser(ctx, &schema.User{ID: id, Role: role, Active: true}))
	if loc != nil {
		u, err := s.store.UpdateUserLocation(ctx, id, *loc)
		s.Require().NoError(err)
		s.Require().NoError(s.index.Put(ctx, geo.KindVolunteer, u.ID, *loc))
	}
}

func (s *ServerTestSuite) token(userID string) string {
	u, err := s.store.GetUser(context.Background(), userID)
	s.Require().NoError(err)
	token, _, err := IssueToken(s.key, u.ID, u.Role, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *ServerTestSuite) call(method, path, userID string, body interface{}, headers map[string]string) (int, response) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Type", "ios")
	req.Header.Set("Client-Version", "3")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func (s *ServerTestSuite) createRequest(body map[string]interface{}) schema.Request {
	code, resp := s.call("POST", "/api/requests", "requester", body, nil)
	s.Require().Equal(http.StatusOK, code, resp.Message)

	var r schema.Request
	s.Require().NoError(json.Unmarshal(resp.Result, &r))
	return r
}

func shoppingAt(lat, lng float64) map[string]interface{} {
	return map[string]interface{}{
		"category":  "shopping",
		"latitude":  lat,
		"longitude": lng,
	}
}

func (s *ServerTestSuite) TestHealthz() {
	code, _ := s.call("GET", "/healthz", "", nil, nil)
	s.Equal(http.StatusOK, code)
}

func (s *ServerTestSuite) TestInformationWithoutHeaders() {
	req := httptest.NewRequest("GET", "/api/information", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
}

func (s *ServerTestSuite) TestClientVersionGateway() {
	code, resp := s.call("GET", "/api/accounts/me", "requester", nil, map[string]string{"Client-Type": "web"})
	s.Equal(http.StatusBadRequest, code)
	s.Equal(int64(1006), resp.Code)

	code, resp = s.call("GET", "/api/accounts/me", "requester", nil, map[string]string{"Client-Version": "1"})
	s.Equal(http.StatusNotAcceptable, code)
	s.Equal(int64(1007), resp.Code)
}

func (s *ServerTestSuite) TestAuthentication() {
	code, resp := s.call("GET", "/api/accounts/me", "", nil, nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal(int64(1001), resp.Code)
	s.False(resp.Success)

	code, resp = s.call("GET", "/api/accounts/me", "", nil, map[string]string{"Authorization": "Bearer abc.def.ghi"})
	s.Equal(http.StatusUnauthorized, code)
	s.Equal(int64(1003), resp.Code)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	forged, _, err := IssueToken(other, "admin", schema.RoleAdmin, time.Hour)
	s.Require().NoError(err)
	code, _ = s.call("GET", "/api/accounts/me", "", nil, map[string]string{"Authorization": "Bearer " + forged})
	s.Equal(http.StatusUnauthorized, code)

	unknown, _, err := IssueToken(s.key, "ghost", schema.RoleRequester, time.Hour)
	s.Require().NoError(err)
	code, _ = s.call("POST", "/api/requests", "", shoppingAt(31.95, 35.91), map[string]string{"Authorization": "Bearer " + unknown})
	s.Equal(http.StatusUnauthorized, code)
}

func (s *ServerTestSuite) TestAccount() {
	code, resp := s.call("GET", "/api/accounts/me", "volunteer-1", nil, nil)
	s.Equal(http.StatusOK, code)
	s.True(resp.Success)

	var u map[string]interface{}
	s.NoError(json.Unmarshal(resp.Result, &u))
	s.Equal("volunteer-1", u["id"])
	s.Equal(false, u["has_device_token"])

	code, _ = s.call("PUT", "/api/accounts/me/device-token", "volunteer-1", map[string]string{"device_token": "token-1"}, nil)
	s.Equal(http.StatusOK, code)

	stored, err := s.store.GetUser(context.Background(), "volunteer-1")
	s.NoError(err)
	s.Equal("token-1", stored.DeviceToken)

	code, _ = s.call("PUT", "/api/accounts/me/device-token", "volunteer-1", map[string]string{}, nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *ServerTestSuite) TestUpdateLocation() {
	code, _ := s.call("PUT", "/api/accounts/me/location", "volunteer-1", map[string]float64{"latitude": 40.0, "longitude": -73.9}, nil)
	s.Equal(http.StatusOK, code)

	hits, err := s.index.Nearby(context.Background(), geo.Query{
		Kind:        geo.KindVolunteer,
		Center:      schema.Location{Latitude: 40.0, Longitude: -73.9},
		MaxDistance: 10,
	})
	s.NoError(err)
	s.Len(hits, 1)

	code, resp := s.call("PUT", "/api/accounts/me/location", "volunteer-1", map[string]float64{"latitude": 95, "longitude": 0}, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(int64(1010), resp.Code)
	s.Equal(schema.ErrInvalidCoordinates.Error(), resp.Message)
}

func (s *ServerTestSuite) TestGeoPositionHeader() {
	code, _ := s.call("GET", "/api/accounts/me", "volunteer-2", nil, map[string]string{"Geo-Position": "10.5;20.25"})
	s.Equal(http.StatusOK, code)

	u, err := s.store.GetUser(context.Background(), "volunteer-2")
	s.NoError(err)
	s.Equal(10.5, u.LastLocation().Latitude)
	s.Equal(20.25, u.LastLocation().Longitude)
}

func (s *ServerTestSuite) TestRequestFlow() {
	r := s.createRequest(shoppingAt(31.95, 35.91))
	s.Equal(schema.StatusPending, r.Status)
	s.Equal("requester", r.Owner)

	code, resp := s.call("POST", "/api/requests/"+r.ID+"/attend", "volunteer-1", nil, nil)
	s.Equal(http.StatusOK, code, resp.Message)

	code, resp = s.call("POST", "/api/requests/"+r.ID+"/attend", "volunteer-2", nil, nil)
	s.Equal(http.StatusConflict, code)
	s.Equal(int64(1202), resp.Code)

	code, resp = s.call("GET", "/api/tasks", "volunteer-1", nil, nil)
	s.Equal(http.StatusOK, code)
	var tasks lifecycle.Tasks
	s.NoError(json.Unmarshal(resp.Result, &tasks))
	s.Len(tasks.Ongoing, 1)
	s.Len(tasks.Completed, 0)

	code, resp = s.call("POST", "/api/requests/"+r.ID+"/finish", "requester", map[string]interface{}{"rating": 9}, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(schema.ErrInvalidRating.Error(), resp.Message)

	code, resp = s.call("POST", "/api/requests/"+r.ID+"/finish", "requester", map[string]interface{}{"rating": 5, "feedback": "thanks"}, nil)
	s.Equal(http.StatusOK, code, resp.Message)

	var finished schema.Request
	s.NoError(json.Unmarshal(resp.Result, &finished))
	s.Equal(schema.StatusFinished, finished.Status)
	s.Equal(5, *finished.Rating)

	code, resp = s.call("POST", "/api/requests/"+r.ID+"/finish", "requester", nil, nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal(int64(1205), resp.Code)
}

func (s *ServerTestSuite) TestFinishWithoutBody() {
	r := s.createRequest(shoppingAt(31.95, 35.91))
	code, resp := s.call("POST", "/api/requests/"+r.ID+"/attend", "volunteer-1", nil, nil)
	s.Require().Equal(http.StatusOK, code, resp.Message)

	finish := func(body string, contentLength int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/requests/"+r.ID+"/finish", strings.NewReader(body))
		req.ContentLength = contentLength
		if contentLength < 0 {
			req.TransferEncoding = []string{"chunked"}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Client-Type", "ios")
		req.Header.Set("Client-Version", "3")
		req.Header.Set("Authorization", "Bearer "+s.token("requester"))

		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := finish("{", -1)
	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())

	w = finish("", -1)
	s.Equal(http.StatusOK, w.Code, w.Body.String())

	var body response
	s.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	var finished schema.Request
	s.NoError(json.Unmarshal(body.Result, &finished))
	s.Equal(schema.StatusFinished, finished.Status)
	s.Nil(finished.Rating)
}

func (s *ServerTestSuite) TestCreateValidation() {
	code, resp := s.call("POST", "/api/requests", "requester", map[string]interface{}{
		"category":  "other",
		"latitude":  31.95,
		"longitude": 35.91,
	}, nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(schema.ErrDescriptionRequired.Error(), resp.Message)

	code, _ = s.call("POST", "/api/requests", "requester", map[string]interface{}{"category": "shopping"}, nil)
	s.Equal(http.StatusBadRequest, code)

	code, resp = s.call("POST", "/api/requests", "volunteer-1", shoppingAt(31.95, 35.91), nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal(int64(1103), resp.Code)

	code, resp = s.call("GET", "/api/requests", "requester", nil, nil)
	s.Equal(http.StatusOK, code)
	var page lifecycle.Page
	s.NoError(json.Unmarshal(resp.Result, &page))
	s.Equal(0, page.Total)
}

func (s *ServerTestSuite) TestCancel() {
	r := s.createRequest(shoppingAt(31.95, 35.91))

	code, resp := s.call("POST", "/api/requests/"+r.ID+"/cancel", "stranger", nil, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal(int64(1203), resp.Code)

	code, _ = s.call("POST", "/api/requests/"+r.ID+"/cancel", "requester", nil, nil)
	s.Equal(http.StatusOK, code)

	code, _ = s.call("POST", "/api/requests/"+r.ID+"/attend", "volunteer-1", nil, nil)
	s.Equal(http.StatusUnprocessableEntity, code)

	code, resp = s.call("GET", "/api/requests/missing", "requester", nil, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal(int64(1200), resp.Code)
}

func (s *ServerTestSuite) TestNearby() {
	near := s.createRequest(shoppingAt(31.951, 35.911))
	s.createRequest(shoppingAt(32.5, 35.91))

	code, resp := s.call("GET", "/api/browse/nearby?max_distance=5000", "volunteer-1", nil, nil)
	s.Equal(http.StatusOK, code, resp.Message)

	var ranked []matching.RankedRequest
	s.NoError(json.Unmarshal(resp.Result, &ranked))
	s.Len(ranked, 1)
	s.Equal(near.ID, ranked[0].Request.ID)

	code, resp = s.call("GET", "/api/browse/nearby?latitude=32.5&longitude=35.91", "volunteer-1", nil, nil)
	s.Equal(http.StatusOK, code)
	s.NoError(json.Unmarshal(resp.Result, &ranked))
	s.Len(ranked, 1)

	code, _ = s.call("GET", "/api/browse/nearby?max_distance=60000", "volunteer-1", nil, nil)
	s.Equal(http.StatusBadRequest, code)

	code, _ = s.call("GET", "/api/browse/nearby?latitude=100&longitude=0", "volunteer-1", nil, nil)
	s.Equal(http.StatusBadRequest, code)

	code, resp = s.call("GET", "/api/browse/nearby", "requester", nil, nil)
	s.Equal(http.StatusForbidden, code)
}

func (s *ServerTestSuite) TestNotified() {
	r := s.createRequest(shoppingAt(31.95, 35.91))
	s.NoError(s.store.AddNotifiedVolunteers(context.Background(), r.ID, []string{"volunteer-2"}))

	code, resp := s.call("GET", "/api/browse/notified", "volunteer-2", nil, nil)
	s.Equal(http.StatusOK, code)

	var page lifecycle.Page
	s.NoError(json.Unmarshal(resp.Result, &page))
	s.Equal(1, page.Total)
	s.Equal(r.ID, page.Requests[0].ID)
}

func (s *ServerTestSuite) TestAdmin() {
	r := s.createRequest(shoppingAt(31.95, 35.91))

	code, _ := s.call("GET", "/api/admin/requests", "requester", nil, nil)
	s.Equal(http.StatusForbidden, code)

	code, resp := s.call("GET", "/api/admin/requests?status=pending", "admin", nil, nil)
	s.Equal(http.StatusOK, code)
	var page lifecycle.Page
	s.NoError(json.Unmarshal(resp.Result, &page))
	s.Equal(1, page.Total)

	code, _ = s.call("GET", "/api/admin/requests?status=done", "admin", nil, nil)
	s.Equal(http.StatusBadRequest, code)

	code, resp = s.call("PATCH", "/api/admin/requests/"+r.ID+"/status", "admin", map[string]string{"status": "finished"}, nil)
	s.Equal(http.StatusBadRequest, code)

	code, resp = s.call("PATCH", "/api/admin/requests/"+r.ID+"/status", "admin", map[string]string{"status": "finished", "volunteer_id": "volunteer-2"}, nil)
	s.Equal(http.StatusOK, code, resp.Message)

	code, resp = s.call("GET", "/api/admin/users?role=volunteer", "admin", nil, nil)
	s.Equal(http.StatusOK, code)
	var users lifecycle.UserPage
	s.NoError(json.Unmarshal(resp.Result, &users))
	s.Equal(2, users.Total)

	code, _ = s.call("GET", "/api/admin/candidates?latitude=31.95&longitude=35.91", "admin", nil, nil)
	s.Equal(http.StatusOK, code)

	code, _ = s.call("DELETE", "/api/admin/users/volunteer-1", "admin", nil, nil)
	s.Equal(http.StatusOK, code)

	code, resp = s.call("GET", "/api/tasks", "volunteer-1", nil, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal(int64(1102), resp.Code)
}

func (s *ServerTestSuite) TestSecret() {
	code, _ := s.call("POST", "/secret/users", "", map[string]string{"role": "volunteer"}, nil)
	s.Equal(http.StatusForbidden, code)

	secret := map[string]string{"Api-Token": "admin-key"}
	code, resp := s.call("POST", "/secret/users", "", map[string]interface{}{
		"id":        "volunteer-3",
		"role":      "volunteer",
		"name":      "Lina",
		"latitude":  31.95,
		"longitude": 35.91,
	}, secret)
	s.Equal(http.StatusOK, code, resp.Message)

	hits, err := s.index.Nearby(context.Background(), geo.Query{
		Kind:        geo.KindVolunteer,
		Center:      schema.Location{Latitude: 31.95, Longitude: 35.91},
		MaxDistance: 1,
	})
	s.NoError(err)
	s.Len(hits, 1)

	code, resp = s.call("POST", "/secret/users", "", map[string]string{"id": "volunteer-3", "role": "volunteer"}, secret)
	s.Equal(http.StatusConflict, code)
	s.Equal(int64(1100), resp.Code)

	code, _ = s.call("POST", "/secret/users", "", map[string]string{"role": "guest"}, secret)
	s.Equal(http.StatusBadRequest, code)

	code, resp = s.call("POST", "/secret/tokens", "", map[string]string{"user_id": "volunteer-3"}, secret)
	s.Equal(http.StatusOK, code)
	s.True(resp.Success)

	code, _ = s.call("POST", "/secret/tokens", "", map[string]string{"user_id": "ghost"}, secret)
	s.Equal(http.StatusNotFound, code)
}

func (s *ServerTestSuite) TestMetrics() {
	s.createRequest(shoppingAt(31.95, 35.91))

	code, _ := s.call("GET", "/metrics/requests", "", nil, nil)
	s.Equal(http.StatusForbidden, code)

	code, resp := s.call("GET", "/metrics/requests", "", nil, map[string]string{"Api-Token": "metric-key"})
	s.Equal(http.StatusOK, code)

	var counts map[string]int64
	s.NoError(json.Unmarshal(resp.Result, &counts))
	s.Equal(int64(1), counts["pending"])
	s.Equal(int64(0), counts["cancelled"])
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var r *gin.Engine
	assert.NotPanics(t, func() {
		r = (&Server{}).setupRouter()
	})

	routes := map[string]bool{}
	for _, info := range r.Routes() {
		routes[info.Method+" "+info.Path] = true
	}
	for _, route := range []string{
		"GET /api/browse/nearby",
		"GET /api/browse/notified",
		"GET /api/requests/:requestID",
		"POST /api/requests/:requestID/finish",
		"PATCH /api/admin/requests/:requestID/status",
		"DELETE /api/admin/users/:userID",
	} {
		assert.True(t, routes[route], route)
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		err    error
		status int
		code   int64
	}{
		{store.ErrStatusMismatch, http.StatusConflict, 1201},
		{store.ErrRequestNotFound, http.StatusNotFound, 1200},
		{lifecycle.ErrUnknownCaller, http.StatusUnauthorized, 1101},
		{lifecycle.ErrNotAttended, http.StatusUnprocessableEntity, 1205},
		{schema.ErrInvalidRating, http.StatusBadRequest, 1010},
		{fault.Wrap(fault.Unavailable, errors.New("dial tcp"), "postgres"), http.StatusServiceUnavailable, 1300},
		{fault.New(fault.Conflict, "user already exists"), http.StatusConflict, 1100},
		{errors.New("unexpected"), http.StatusInternalServerError, 999},
	}

	for _, tc := range testCases {
		status, body := errorResponse(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, body.Code, tc.err.Error())
		assert.False(t, body.Success)
	}
}

func TestParseGeoPosition(t *testing.T) {
	loc, err := parseGeoPosition("31.95;35.91")
	assert.NoError(t, err)
	assert.Equal(t, schema.Location{Latitude: 31.95, Longitude: 35.91}, loc)

	for _, v := range []string{"", "31.95", "a;b", "91;0", "1;2;3"} {
		_, err := parseGeoPosition(v)
		assert.Error(t, err, v)
	}
}
