package upstox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-screener/internal/models"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) Token(context.Context) (string, error) { return s.token, s.err }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, RetryPause: time.Millisecond}, staticToken{token: "tok"}, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestHistoricalDaily(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"status":"success","data":{"candles":[
			["2024-06-02T00:00:00+05:30",101,103,100,102,1500,0],
			["2024-06-03T00:00:00+05:30",102,106,101,105,2500,0]
		]}}`)
	})

	from := time.Date(2023, 11, 16, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	bars, err := c.HistoricalDaily(context.Background(), "NSE_EQ|INE002A01018", from, to)
	require.NoError(t, err)

	assert.Equal(t, "/v2/historical-candle/NSE_EQ%7CINE002A01018/day/2024-06-03/2023-11-16", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 105.0, bars[0].Close)
	assert.Equal(t, int64(2500), bars[0].Volume)
}

func TestIntradayIntervalMapping(t *testing.T) {
	assert.Equal(t, "1minute", IntradayInterval(1))
	assert.Equal(t, "30minute", IntradayInterval(30))
	assert.Equal(t, "1minute", IntradayInterval(5))
}

func TestIntraday(t *testing.T) {
	t.Run("bars newest first", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/30minute")
			writeJSON(w, http.StatusOK, `{"status":"success","data":{"candles":[
				["2024-06-03T09:15:00+05:30",100,101,99,100.5,10,0],
				["2024-06-03T09:45:00+05:30",100.5,102,100,101.5,20,0]
			]}}`)
		})
		bars, err := c.Intraday(context.Background(), "NSE_EQ|X", 30)
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, 101.5, bars[0].Close)
	})

	t.Run("empty candles is no data", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"status":"success","data":{"candles":[]}}`)
		})
		_, err := c.Intraday(context.Background(), "NSE_EQ|X", 1)
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestFaultClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusUnauthorized, `{"status":"error"}`, ErrAuthExpired},
		{http.StatusTooManyRequests, ``, ErrRateLimited},
		{http.StatusBadRequest, `{"status":"error","errors":[{"message":"Invalid expiry"}]}`, ErrBadRequest},
		{http.StatusInternalServerError, `oops`, ErrUpstream},
		{http.StatusOK, `{"status":"error","message":"nope"}`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.LTP(context.Background(), "NSE_EQ|X")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}

	t.Run("bad request carries upstream message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"status":"error","errors":[{"message":"Invalid expiry"}]}`)
		})
		_, err := c.OptionChain(context.Background(), "NSE_EQ|X", "2024-01-01")
		assert.ErrorContains(t, err, "Invalid expiry")
	})
}

func TestMissingToken(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called.Store(true) }))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, staticToken{err: errors.New("no_token")}, zerolog.Nop())
	_, err := c.LTP(context.Background(), "NSE_EQ|X")
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called.Load())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 10 * time.Millisecond}, staticToken{token: "tok"}, zerolog.Nop())
	_, err := c.LTP(context.Background(), "NSE_EQ|X")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLTP(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NSE_FO|12345", r.URL.Query().Get("instrument_key"))
		writeJSON(w, http.StatusOK, `{"status":"success","data":{"NSE_FO:RELIANCE24JUN2900CE":{"instrument_token":"NSE_FO|12345","last_price":42.35}}}`)
	})
	ltp, err := c.LTP(context.Background(), "NSE_FO|12345")
	require.NoError(t, err)
	assert.Equal(t, 42.35, ltp)
}

func TestOptionContractsRetriesRateLimit(t *testing.T) {
	t.Run("succeeds after a 429", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				writeJSON(w, http.StatusTooManyRequests, ``)
				return
			}
			assert.Equal(t, "2024-06-27", r.URL.Query().Get("expiry_date"))
			writeJSON(w, http.StatusOK, `{"status":"success","data":[
				{"instrument_key":"NSE_FO|1","strike_price":2900,"instrument_type":"CE","expiry":"2024-06-27","lot_size":250,"trading_symbol":"RELIANCE 2900 CE 27 JUN 24"}
			]}`)
		})
		contracts, err := c.OptionContracts(context.Background(), "NSE_EQ|INE002A01018", "2024-06-27")
		require.NoError(t, err)
		require.Len(t, contracts, 1)
		assert.Equal(t, 250, contracts[0].LotSize)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after three attempts", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusTooManyRequests, ``)
		})
		_, err := c.OptionContracts(context.Background(), "NSE_EQ|X", "")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("other faults are not retried", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, http.StatusUnauthorized, ``)
		})
		_, err := c.OptionContracts(context.Background(), "NSE_EQ|X", "")
		assert.ErrorIs(t, err, ErrAuthExpired)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestOptionChainFlattening(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"success","data":[
			{"expiry":"2024-06-27","strike_price":2900,"underlying_spot_price":2950.5,
			 "call_options":{"instrument_key":"NSE_FO|1","market_data":{"ltp":80,"oi":1000},"option_greeks":{"delta":0.6,"iv":21}},
			 "put_options":{"instrument_key":"NSE_FO|2","market_data":{"ltp":25}}},
			{"expiry":"2024-06-27","strike_price":3000,"underlying_spot_price":2950.5,
			 "call_options":{"instrument_key":"NSE_FO|3"}}
		]}`)
	})

	chain, err := c.OptionChain(context.Background(), "NSE_EQ|X", "2024-06-27")
	require.NoError(t, err)
	require.NotNil(t, chain.SpotPrice)
	assert.Equal(t, 2950.5, *chain.SpotPrice)
	require.Len(t, chain.Entries, 2)
	assert.Equal(t, models.OptionTypeCall, chain.Entries[0].OptionType)
	assert.Equal(t, 0.6, chain.Entries[0].Delta)
	assert.Equal(t, models.OptionTypePut, chain.Entries[1].OptionType)
	assert.Equal(t, 0.0, chain.Entries[1].Delta)
}

func TestPlaceOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/order/place", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SCREENER_AUTO", body["tag"])
		assert.Equal(t, "NSE_FO|1", body["instrument_token"])
		assert.Equal(t, "MARKET", body["order_type"])
		assert.Equal(t, "D", body["product"])
		assert.Equal(t, "DAY", body["validity"])

		writeJSON(w, http.StatusOK, `{"status":"success","data":{"order_id":"240603000000001"}}`)
	})

	id, err := c.PlaceOrder(context.Background(), models.OrderRequest{
		InstrumentKey:   "NSE_FO|1",
		Quantity:        250,
		TransactionType: "BUY",
	})
	require.NoError(t, err)
	assert.Equal(t, "240603000000001", id)
}

func TestExpiries(t *testing.T) {
	got := Expiries([]models.OptionContract{
		{Expiry: "2024-07-25"},
		{Expiry: "2024-06-27"},
		{Expiry: ""},
		{Expiry: "2024-06-27"},
	})
	assert.Equal(t, []string{"2024-06-27", "2024-07-25"}, got)
}

func TestAuthClient(t *testing.T) {
	t.Run("refresh posts form and decodes grant", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "r1", r.PostForm.Get("refresh_token"))
			assert.Equal(t, "key", r.PostForm.Get("client_id"))
			writeJSON(w, http.StatusOK, `{"access_token":"a2","refresh_token":"r2","expires_in":3600}`)
		}))
		defer srv.Close()

		a := NewAuthClient(AuthConfig{APIKey: "key", APISecret: "secret", TokenURL: srv.URL})
		grant, err := a.Refresh(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "a2", grant.AccessToken)
		assert.Equal(t, "r2", grant.RefreshToken)
		assert.Equal(t, int64(3600), grant.ExpiresIn)
	})

	t.Run("401 is auth expired", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		a := NewAuthClient(AuthConfig{TokenURL: srv.URL})
		_, err := a.Refresh(context.Background(), "r1")
		assert.ErrorIs(t, err, ErrAuthExpired)
	})

	t.Run("code exchange", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "abc", r.PostForm.Get("code"))
			assert.Equal(t, "http://localhost/cb", r.PostForm.Get("redirect_uri"))
			writeJSON(w, http.StatusOK, `{"access_token":"a1"}`)
		}))
		defer srv.Close()

		a := NewAuthClient(AuthConfig{RedirectURL: "http://localhost/cb", TokenURL: srv.URL})
		grant, err := a.ExchangeCode(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "a1", grant.AccessToken)
		assert.Zero(t, grant.ExpiresIn)
	})

	t.Run("login url", func(t *testing.T) {
		a := NewAuthClient(AuthConfig{APIKey: "key", RedirectURL: "http://localhost/cb"})
		assert.True(t, a.Configured())

		u, err := url.Parse(a.LoginURL())
		require.NoError(t, err)
		assert.Equal(t, "/v2/login/authorization/dialog", u.Path)
		assert.Equal(t, "key", u.Query().Get("client_id"))
		assert.Equal(t, "code", u.Query().Get("response_type"))
		assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))

		assert.False(t, NewAuthClient(AuthConfig{}).Configured())
	})
}
