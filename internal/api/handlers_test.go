package api

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"example.com/marathon/internal/auth"
	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/persistence/memory"
)

var (
	testNow     = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)
	testAuthCfg = auth.Config{Secret: "handler-test-secret", Issuer: "marathon.test"}
)

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	clock := domain.WithClock(func() time.Time { return testNow })

	handler := NewHandler(
		domain.NewRunningService(store, clock),
		domain.NewMarathonService(store, clock),
		domain.NewApplicationService(store, store, clock),
	)
	router := NewRouter(RouterConfig{
		Handler:        handler,
		Auth:           auth.NewMiddleware(auth.NewJWTVerifier(testAuthCfg)),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return &testServer{t: t, router: router, store: store}
}

func (s *testServer) do(method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(email string) string {
	s.t.Helper()
	tok, err := auth.Sign(testAuthCfg, "uid-"+email, email, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMergeRunningDataCreatesScaffold(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPatch, "/running-data", `{"userId":"u1","dailyData":[{"day":"1","distance":10,"time":60}]}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[RunningDataResponse](t, rec)
	require.Equal(t, "Data saved successfully", resp.Message)
	require.Equal(t, "u1", resp.Data.UserID)
	require.Len(t, resp.Data.DailyData, domain.ScaffoldDays)
	require.Equal(t, domain.DailyRecord{Day: "1", Distance: 10, Time: 60, Speed: 10, Year: 2024, Month: 3}, resp.Data.DailyData[0])
	for _, day := range resp.Data.DailyData[1:] {
		require.Zero(t, day.Distance)
		require.Zero(t, day.Speed)
		require.Equal(t, 2024, day.Year)
		require.Equal(t, 3, day.Month)
	}
}

func TestMergeRunningDataUpdatesExisting(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPatch, "/running-data", `{"userId":"u1","dailyData":[{"day":"1","distance":10,"time":60}]}`, "").Code)

	rec := srv.do(http.MethodPatch, "/running-data", `{"userId":"u1","dailyData":[{"day":1,"time":30},{"day":"31","distance":5,"time":30}]}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[RunningDataResponse](t, rec)
	require.Equal(t, "Data updated successfully", resp.Message)
	require.Len(t, resp.Data.DailyData, domain.ScaffoldDays+1)
	require.Equal(t, 10.0, resp.Data.DailyData[0].Distance, "distance kept from stored record")
	require.Equal(t, 20.0, resp.Data.DailyData[0].Speed)
	require.Equal(t, "31", resp.Data.DailyData[30].Day)
	require.Equal(t, 10.0, resp.Data.DailyData[30].Speed)

	stored, err := srv.store.FindRunningLog(t.Context(), "u1")
	require.NoError(t, err)
	require.Equal(t, resp.Data.DailyData, stored.DailyData)
}

func TestMergeRunningDataEmptyArray(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodPatch, "/running-data", `{"userId":"u2","dailyData":[]}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, decode[RunningDataResponse](t, rec).Data.DailyData, domain.ScaffoldDays)
}

func TestMergeRunningDataRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing user", body: `{"dailyData":[{"day":"1"}]}`},
		{name: "missing daily data", body: `{"userId":"u1"}`},
		{name: "null daily data", body: `{"userId":"u1","dailyData":null}`},
		{name: "daily data not an array", body: `{"userId":"u1","dailyData":"monday"}`},
		{name: "record without day", body: `{"userId":"u1","dailyData":[{"distance":3}]}`},
		{name: "negative distance", body: `{"userId":"u1","dailyData":[{"day":"2","distance":-1}]}`},
		{name: "malformed json", body: `{"userId":`},
		{name: "fractional day", body: `{"userId":"u1","dailyData":[{"day":5.5}]}`},
		{name: "speed overflows", body: `{"userId":"u1","dailyData":[{"day":"3","distance":1e308,"time":1e-300}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			rec := srv.do(http.MethodPatch, "/running-data", tc.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode[map[string]string](t, rec)
			require.NotEmpty(t, body["error"])

			log, err := srv.store.FindRunningLog(t.Context(), "u1")
			require.NoError(t, err)
			require.Nil(t, log)
		})
	}
}

func TestMergeRunningDataNormalisesNumericDays(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPatch, "/running-data", `{"userId":"u1","dailyData":[{"day":5,"distance":1,"time":6}]}`, "").Code)

	for _, day := range []string{"5.0", "5e0", `"5"`} {
		rec := srv.do(http.MethodPatch, "/running-data", `{"userId":"u1","dailyData":[{"day":`+day+`,"distance":5,"time":30}]}`, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[RunningDataResponse](t, rec)
		require.Len(t, resp.Data.DailyData, domain.ScaffoldDays, "day %s", day)
		require.Equal(t, "5", resp.Data.DailyData[4].Day)
		require.Equal(t, 10.0, resp.Data.DailyData[4].Speed)
	}
}

func TestMergeRunningDataKeepsLogReadableAfterOverflow(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPatch, "/running-data", `{"userId":"u9","dailyData":[]}`, "").Code)

	rec := srv.do(http.MethodPatch, "/running-data", `{"userId":"u9","dailyData":[{"day":"3","distance":1e308,"time":1e-300}]}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, decode[map[string]string](t, rec)["error"], "speed")

	rec = srv.do(http.MethodGet, "/api/user-stats?userId=u9", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Zero(t, decode[domain.UserStats](t, rec).Lifetime)

	rec = srv.do(http.MethodPatch, "/running-data", `{"userId":"u9","dailyData":[{"day":"4","distance":5,"time":30}]}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 10.0, decode[RunningDataResponse](t, rec).Data.DailyData[3].Speed)
}

func TestWriteJSONUnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"speed": math.Inf(1)})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"type":"server_error","error":"Server error"}`, rec.Body.String())
}

func TestUserStats(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/user-stats", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/user-stats?userId=%20%20", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/user-stats?userId=nonexistent", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "No data found for this user", decode[map[string]string](t, rec)["error"])

	body := `{"userId":"u1","dailyData":[{"day":"1","distance":10,"time":60},{"day":"2","distance":4,"time":30},{"day":"40","distance":7,"time":35,"year":2024,"month":1}]}`
	require.Equal(t, http.StatusCreated, srv.do(http.MethodPatch, "/running-data", body, "").Code)

	rec = srv.do(http.MethodGet, "/api/user-stats?userId=u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stats := decode[domain.UserStats](t, rec)
	require.Equal(t, 21.0, stats.Lifetime)
	require.Equal(t, 10.0, stats.LongestRun)
	require.Equal(t, []domain.MonthlyDistance{{Month: "Mar", Distance: 14}, {Month: "Jan", Distance: 7}}, stats.MonthlyData)
	require.Len(t, stats.DailyData, domain.ScaffoldDays)
}

func TestMarathonLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token("org@example.com")

	create := map[string]interface{}{
		"title":             "City Marathon",
		"location":          "Dhaka",
		"runningDistance":   "42k",
		"marathonStartDate": "2024-05-01",
		"email":             "org@example.com",
	}
	rec := srv.do(http.MethodPost, "/marathon", create, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodPost, "/marathon", create, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[InsertResponse](t, rec).InsertedID
	require.NotEmpty(t, id)

	rec = srv.do(http.MethodGet, "/marathon/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Marathon](t, rec)
	require.Equal(t, "City Marathon", got.Title)
	require.Equal(t, testNow, got.CreatedAt)
	require.Zero(t, got.RegistrationCount)

	rec = srv.do(http.MethodGet, "/marathon/does-not-exist", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Marathon not found"}`, rec.Body.String())

	rec = srv.do(http.MethodPatch, "/marathon/"+id, `{"location":"Chattogram"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, domain.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, decode[domain.UpdateResult](t, rec))

	rec = srv.do(http.MethodPatch, "/marathon/"+id, `{}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/my-marathon?email=ORG@example.com", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Empty(t, decode[[]domain.Marathon](t, rec), "email filter is exact")

	rec = srv.do(http.MethodGet, "/my-marathon?email=org@example.com", nil, token)
	require.Len(t, decode[[]domain.Marathon](t, rec), 1)

	rec = srv.do(http.MethodGet, "/my-marathon?email=someone@example.com", nil, token)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodDelete, "/marathon/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decode[DeleteResponse](t, rec).DeletedCount)

	rec = srv.do(http.MethodGet, "/marathon", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestLatestMarathonsReturnsNewestFour(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token("org@example.com")

	for i := 0; i < 6; i++ {
		body := map[string]interface{}{
			"title":     "Race",
			"email":     "org@example.com",
			"createdAt": testNow.Add(time.Duration(i) * time.Hour),
		}
		require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/marathon", body, token).Code)
	}

	rec := srv.do(http.MethodGet, "/marathon/latest", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	latest := decode[[]domain.Marathon](t, rec)
	require.Len(t, latest, domain.LatestMarathonsLimit)
	require.Equal(t, testNow.Add(5*time.Hour), latest[0].CreatedAt)
}

func TestApplicationsRegisterAndList(t *testing.T) {
	srv := newTestServer(t)
	token := srv.token("runner@example.com")

	marathonID, err := srv.store.InsertMarathon(t.Context(), domain.Marathon{Title: "City Marathon (2024)", Email: "org@example.com", CreatedAt: testNow})
	require.NoError(t, err)

	rec := srv.do(http.MethodPost, "/applications", map[string]string{
		"marathonID": marathonID,
		"title":      "City Marathon (2024)",
		"email":      "runner@example.com",
		"firstName":  "Rafi",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, decode[InsertResponse](t, rec).InsertedID)

	m, err := srv.store.GetMarathon(t.Context(), marathonID)
	require.NoError(t, err)
	require.Equal(t, 1, m.RegistrationCount)

	rec = srv.do(http.MethodPost, "/applications", `{"title":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/applications?email=runner@example.com", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/applications?email=runner@example.com&title=marathon%20(", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	apps := decode[[]domain.Application](t, rec)
	require.Len(t, apps, 1)
	require.Zero(t, apps[0].RegisterCount)
	require.Equal(t, "Rafi", apps[0].FirstName)
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Hello World!", rec.Body.String())

	rec = srv.do(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/running-data", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
