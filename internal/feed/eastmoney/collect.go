package eastmoney

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tianji-quant/tianji/internal/consensus"
)

// FetchAnalystBuyCount counts recent broker "buy" ratings for a symbol. The
// ratings page lists one report per row with the rating in the third column.
func (c *Client) FetchAnalystBuyCount(ctx context.Context, symbol string) (int, error) {
	params := url.Values{}
	params.Set("code", bareCode(symbol))

	html, err := c.fetchHTML(ctx, "/report/stock", params)
	if err != nil {
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}

	count := 0
	doc.Find("table.rating-table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		rating := strings.TrimSpace(cells.Eq(2).Text())
		if rating == "买入" || strings.EqualFold(rating, "buy") {
			count++
		}
	})

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  count,
	}).Debug("Fetched analyst ratings")
	return count, nil
}

// FetchSectorHeatRank returns the symbol's sector rank on the board-heat
// ranking page, 1 being the hottest. A symbol whose sector is not listed
// returns 0 and false.
func (c *Client) FetchSectorHeatRank(ctx context.Context, symbol string) (int, bool, error) {
	html, err := c.fetchHTML(ctx, "/bkzj/hy.html", nil)
	if err != nil {
		return 0, false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false, err
	}

	code := bareCode(symbol)
	rank := 0
	found := false
	doc.Find("table.sector-rank tr").Each(func(i int, row *goquery.Selection) {
		if found {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		// Column 3 lists the sector's leading stock codes, comma separated.
		members := strings.TrimSpace(cells.Eq(2).Text())
		for _, m := range strings.Split(members, ",") {
			if strings.TrimSpace(m) == code {
				r, err := strconv.Atoi(strings.TrimSpace(cells.Eq(0).Text()))
				if err != nil {
					return
				}
				rank = r
				found = true
				return
			}
		}
	})

	return rank, found, nil
}

// FetchDiscussionVolume returns the stock-forum post count for a symbol, the
// raw input of the sentiment family.
func (c *Client) FetchDiscussionVolume(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("code", bareCode(symbol))

	html, err := c.fetchHTML(ctx, "/guba/list", params)
	if err != nil {
		return 0, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(doc.Find("span.post-count").First().Text())
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

// CollectSignal assembles the logic and sentiment families for one symbol.
// Each fetch failure drops its family (or half) rather than failing the
// whole signal; the scorer treats absence as zero contribution.
func (c *Client) CollectSignal(ctx context.Context, symbol string, date time.Time) consensus.Signal {
	sig := consensus.Signal{Symbol: symbol, Date: date}

	logic := &consensus.LogicSignal{}
	if count, err := c.FetchAnalystBuyCount(ctx, symbol); err == nil {
		logic.AnalystBuyCount = &count
	} else {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Analyst ratings fetch failed")
	}
	if rank, ok, err := c.FetchSectorHeatRank(ctx, symbol); err == nil && ok {
		logic.SectorHeatRank = &rank
	} else if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Sector heat fetch failed")
	}
	if logic.AnalystBuyCount != nil || logic.SectorHeatRank != nil {
		sig.Logic = logic
	}

	if vol, err := c.FetchDiscussionVolume(ctx, symbol); err == nil {
		sig.Sentiment = &consensus.SentimentSignal{DiscussionVolume: vol}
	} else {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Discussion volume fetch failed")
	}

	return sig
}

// bareCode strips the exchange suffix: "600519.SH" -> "600519".
func bareCode(symbol string) string {
	if i := strings.IndexByte(symbol, '.'); i > 0 {
		return symbol[:i]
	}
	return symbol
}
