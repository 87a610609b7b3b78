package market

import "strings"

// Board is the listing board classification of an instrument.
type Board string

const (
	BoardMain Board = "main"              // Shanghai/Shenzhen main board
	BoardStar Board = "science-innovation" // STAR market (688xxx)
	BoardGEM  Board = "growth-enterprise"  // ChiNext (300xxx/301xxx)
)

// Venue is the exchange an instrument is listed on.
type Venue string

const (
	VenueShanghai Venue = "SH"
	VenueShenzhen Venue = "SZ"
)

// ListingStatus describes whether an instrument is currently tradable at all.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSuspended ListingStatus = "suspended-unknown-duration"
	ListingDelisted  ListingStatus = "delisted"
)

// Instrument is the static-per-day view of a listed stock.
// Immutable within a trading day; refreshed at most once daily by the feed.
type Instrument struct {
	Symbol  string        `json:"symbol"` // exchange-qualified, e.g. "600519.SH"
	Name    string        `json:"name"`
	Board   Board         `json:"board"`
	IsST    bool          `json:"is_st"`
	Listing ListingStatus `json:"listing"`
}

// Venue derives the exchange venue from the symbol suffix.
func (i Instrument) Venue() Venue {
	return VenueFromSymbol(i.Symbol)
}

// VenueFromSymbol maps the ".SH"/".SZ" suffix to a venue.
// Unqualified symbols default to Shenzhen, which carries no transfer fee.
func VenueFromSymbol(symbol string) Venue {
	if strings.HasSuffix(symbol, ".SH") {
		return VenueShanghai
	}
	return VenueShenzhen
}

// BoardFromSymbol classifies a symbol by its numeric prefix.
// 688 is the STAR market, 300/301 is ChiNext, everything else main board.
func BoardFromSymbol(symbol string) Board {
	code := symbol
	if i := strings.IndexByte(symbol, '.'); i > 0 {
		code = symbol[:i]
	}
	switch {
	case strings.HasPrefix(code, "688"):
		return BoardStar
	case strings.HasPrefix(code, "300"), strings.HasPrefix(code, "301"):
		return BoardGEM
	default:
		return BoardMain
	}
}
