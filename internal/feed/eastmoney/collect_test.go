package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/pkg/httputil"
	"github.com/tianji-quant/tianji/pkg/logger"
)

const ratingsHTML = `<html><body>
<table class="rating-table">
<tr><th>Date</th><th>Broker</th><th>Rating</th></tr>
<tr><td>2024-01-08</td><td>CITIC</td><td>买入</td></tr>
<tr><td>2024-01-05</td><td>CICC</td><td>买入</td></tr>
<tr><td>2024-01-03</td><td>Guotai</td><td>增持</td></tr>
<tr><td>2024-01-02</td><td>Huatai</td><td>buy</td></tr>
</table>
</body></html>`

const sectorHTML = `<html><body>
<table class="sector-rank">
<tr><th>Rank</th><th>Sector</th><th>Leaders</th></tr>
<tr><td>1</td><td>Liquor</td><td>600519, 000858</td></tr>
<tr><td>2</td><td>Banks</td><td>601398, 600036</td></tr>
</table>
</body></html>`

const gubaHTML = `<html><body>
<span class="post-count">128,450</span>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logger.NewNop()
	return NewClient(httputil.New(log, 100, 5*time.Second), log, srv.URL)
}

func TestFetchAnalystBuyCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report/stock", r.URL.Path)
		assert.Equal(t, "600519", r.URL.Query().Get("code"))
		w.Write([]byte(ratingsHTML))
	}))

	count, err := client.FetchAnalystBuyCount(context.Background(), "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, 3, count) // two 买入 plus one "buy"; 增持 does not count
}

func TestFetchSectorHeatRank(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sectorHTML))
	}))

	rank, ok, err := client.FetchSectorHeatRank(context.Background(), "600519.SH")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	_, ok, err = client.FetchSectorHeatRank(context.Background(), "300750.SZ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchDiscussionVolume(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(gubaHTML))
	}))

	vol, err := client.FetchDiscussionVolume(context.Background(), "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, 128_450.0, vol)
}

func TestCollectSignal_PartialFailuresDropFamilies(t *testing.T) {
	// Ratings page works, everything else errors: the logic family keeps its
	// analyst half and sentiment is absent.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/report/stock":
			w.Write([]byte(ratingsHTML))
		default:
			// 404 responses are terminal for the request, not retried.
			http.NotFound(w, r)
		}
	}))

	sig := client.CollectSignal(context.Background(), "600519.SH", market.Day(2024, 1, 8))

	require.NotNil(t, sig.Logic)
	require.NotNil(t, sig.Logic.AnalystBuyCount)
	assert.Equal(t, 3, *sig.Logic.AnalystBuyCount)
	assert.Nil(t, sig.Logic.SectorHeatRank)
	assert.Nil(t, sig.Sentiment)
	assert.Nil(t, sig.Technical)
	assert.False(t, sig.Empty())
}
