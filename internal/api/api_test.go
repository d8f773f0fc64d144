package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"LuckyNumbers/internal/config"
	"LuckyNumbers/internal/messaging"
	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/repository"
	"LuckyNumbers/internal/service"
	"LuckyNumbers/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testStart = time.Date(2026, 10, 16, 12, 0, 30, 0, time.UTC)

type server struct {
	router  *gin.Engine
	db      *repository.Database
	clock   *testutil.Clock
	results repository.ResultRepository
	broker  *messaging.Broker
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := testutil.Logger()

	db, err := repository.Open(context.Background(), testutil.SQLiteDialector(t),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}, repository.DefaultRetryPolicy(), logger)
	require.NoError(t, err)
	testutil.SinglePool(t, db.Gorm())
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	clock := testutil.NewClock(testStart)
	rules := model.DefaultRules()
	results := repository.NewResultRepository(db, rules, clock.Now)
	guesses := repository.NewGuessRepository(db, rules, clock.Now)
	broker := messaging.NewBroker(logger)

	router := NewRouter(&config.ServerConfig{CORSOrigins: []string{"http://localhost:3000"}}, Deps{
		Service:    service.NewLotteryService(results, guesses, logger),
		Subscriber: broker,
		Store:      db,
		Topic:      messaging.TopicNumbers,
		Logger:     logger,
	})
	return &server{router: router, db: db, clock: clock, results: results, broker: broker}
}

func (s *server) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func guessCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestCreateAndFetchGuess(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/guesses", gin.H{"numbers": []int{6, 5, 4, 3, 2, 1, 1}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.Guess
	decode(t, w, &created)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, created.Numbers)
	assert.Equal(t, "/api/guesses/"+created.ID, created.Ref)

	cookie := guessCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, created.ID, cookie.Value)

	w = s.do(t, http.MethodGet, "/api/guesses", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/guesses/"+created.ID, w.Header().Get("Location"))

	w = s.do(t, http.MethodGet, "/api/guesses/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched model.Guess
	decode(t, w, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Numbers, fetched.Numbers)
}

func TestCreateGuessWithDate(t *testing.T) {
	s := newServer(t)

	future := s.clock.Now().Add(5 * time.Minute)
	w := s.do(t, http.MethodPost, "/api/guesses", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}, "date": future.Format(time.RFC3339)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g model.Guess
	decode(t, w, &g)
	assert.True(t, time.Date(2026, 10, 16, 12, 5, 0, 0, time.UTC).Equal(g.ForDate))

	w = s.do(t, http.MethodPost, "/api/guesses", `{"numbers":[1,2,3,4,5,6],"date":`+strconv.FormatInt(future.UnixMilli(), 10)+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateGuessRejected(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"too few numbers", gin.H{"numbers": []int{1, 2, 3}}},
		{"out of range", gin.H{"numbers": []int{1, 2, 3, 4, 5, 99}}},
		{"past date", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}, "date": "2020-01-01T00:00:00Z"}},
		{"bad date", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}, "date": "tomorrow"}},
		{"not json", "numbers please"},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/guesses", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Nil(t, guessCookie(w))
		})
	}
}

func TestCurrentGuessWithoutCookie(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/api/guesses", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownGuessClearsCookie(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/api/guesses/nope", nil, &http.Cookie{Name: CookieName, Value: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	c := guessCookie(w)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
}

func TestUpdateGuess(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/guesses", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}})
	require.Equal(t, http.StatusCreated, w.Code)
	var g model.Guess
	decode(t, w, &g)

	w = s.do(t, http.MethodPut, "/api/guesses/"+g.ID, gin.H{"numbers": []int{10, 11, 12, 13, 14, 15}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Guess
	decode(t, w, &updated)
	assert.Equal(t, g.ID, updated.ID)
	assert.Equal(t, []int{10, 11, 12, 13, 14, 15}, updated.Numbers)

	w = s.do(t, http.MethodPut, "/api/guesses/nope", gin.H{"numbers": []int{10, 11, 12, 13, 14, 15}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/guesses/"+g.ID, gin.H{"numbers": []int{10}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// the draw for the guess has started
	s.clock.Advance(time.Minute)
	w = s.do(t, http.MethodPut, "/api/guesses/"+g.ID, gin.H{"numbers": []int{20, 21, 22, 23, 24, 25}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "closed")
}

func TestDeleteGuess(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/guesses", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}})
	require.Equal(t, http.StatusCreated, w.Code)
	var g model.Guess
	decode(t, w, &g)

	w = s.do(t, http.MethodDelete, "/api/guesses/"+g.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/guesses/"+g.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/guesses/"+g.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNumbersEndpoints(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	first, err := s.results.AddResults(ctx, s.clock.Now(), []int{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	_, err = s.results.AddResults(ctx, s.clock.Now().Add(time.Minute), []int{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/numbers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Numbers []model.DrawResult `json:"numbers"`
	}
	decode(t, w, &list)
	require.Len(t, list.Numbers, 1)
	assert.Equal(t, []int{7, 8, 9, 10, 11, 12}, list.Numbers[0].Numbers)

	w = s.do(t, http.MethodGet, "/api/numbers?length=5", nil)
	decode(t, w, &list)
	assert.Len(t, list.Numbers, 2)

	for _, ts := range []string{
		strconv.FormatInt(first.ID, 10),
		strconv.FormatInt(first.ID+42_000, 10),
		"2026-10-16T12:00:15Z",
	} {
		w = s.do(t, http.MethodGet, "/api/numbers/"+ts, nil)
		require.Equal(t, http.StatusOK, w.Code, ts)
		decode(t, w, &list)
		require.Len(t, list.Numbers, 1)
		assert.Equal(t, first.ID, list.Numbers[0].ID, ts)
	}

	w = s.do(t, http.MethodGet, "/api/numbers/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/numbers/2020-01-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/numbers/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Stats []model.DrawnStat `json:"stats"`
	}
	decode(t, w, &stats)
	assert.Len(t, stats.Stats, 12)
}

func TestNotReadyAnswers503(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.db.Close())

	w = s.do(t, http.MethodGet, "/api/numbers", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = s.do(t, http.MethodPost, "/api/guesses", gin.H{"numbers": []int{1, 2, 3, 4, 5, 6}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebsocketReceivesDrawAndGuessMessages(t *testing.T) {
	s := newServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?guess=g1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.broker.Subscribers(messaging.TopicNumbers) == 1 && s.broker.Subscribers(messaging.GuessTopic("g1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, s.broker.Publish(ctx, messaging.TopicNumbers, []byte(`{"action":"NEW_DRAW_RESULTS"}`)))
	require.NoError(t, s.broker.Publish(ctx, messaging.GuessTopic("g2"), []byte(`{"guess":"g2"}`)))
	require.NoError(t, s.broker.Publish(ctx, messaging.GuessTopic("g1"), []byte(`{"guess":"g1"}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"NEW_DRAW_RESULTS"}`, string(first))
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"guess":"g1"}`, string(second))

	// closing the socket drops the subscriptions
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return s.broker.Subscribers(messaging.TopicNumbers) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("1792152060000")
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 16, 12, 1, 0, 0, time.UTC).Equal(got))

	got, err = parseDate("2026-10-16T14:01:00+02:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 16, 12, 1, 0, 0, time.UTC).Equal(got))

	_, err = parseDate("yesterday")
	assert.ErrorIs(t, err, model.ErrValidation)
}
