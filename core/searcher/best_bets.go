package searcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/goto/sitesearch/core/search/querybuilder"
	"github.com/goto/sitesearch/pkg/statsd"
)

const bestBetAnalyzer = "best_bet_stemmed_match"

// BestBetsFinder returns the links promoted and demoted for a query.
type BestBetsFinder interface {
	Find(ctx context.Context, query string) (search.BestBets, error)
}

// BestBetsChecker reads the bets stored for a query in the metasearch
// index.
type BestBetsChecker struct {
	engine   search.Engine
	analyzer search.Analyzer
	index    string
	statsd   *statsd.Reporter
}

func NewBestBetsChecker(engine search.Engine, analyzer search.Analyzer, index string, reporter *statsd.Reporter) *BestBetsChecker {
	return &BestBetsChecker{
		engine:   engine,
		analyzer: analyzer,
		index:    index,
		statsd:   reporter,
	}
}

func (c *BestBetsChecker) Find(ctx context.Context, query string) (search.BestBets, error) {
	if strings.TrimSpace(query) == "" {
		return search.BestBets{}, nil
	}

	analyzed, err := c.analyzedQuery(ctx, query)
	if err != nil {
		return search.BestBets{}, err
	}

	payload, err := querybuilder.BestBetsLookup(query)
	if err != nil {
		return search.BestBets{}, err
	}

	start := time.Now()
	resp, err := c.engine.Search(ctx, []string{c.index}, payload)
	c.statsd.Timing("best_bets.lookup", time.Since(start)).Publish()
	if err != nil {
		return search.BestBets{}, fmt.Errorf("look up best bets: %w", err)
	}

	var bets []search.Bet
	for _, hit := range resp.Hits {
		bet, ok, err := parseBet(hit, analyzed)
		if err != nil {
			return search.BestBets{}, err
		}
		if ok {
			bets = append(bets, bet)
		}
	}
	return search.CombineBets(bets), nil
}

// analyzedQuery returns the stemmed query padded with spaces, so that a
// stored term only matches whole words. A query the analyzer rejects
// matches no stemmed bet.
func (c *BestBetsChecker) analyzedQuery(ctx context.Context, query string) (string, error) {
	tokens, err := c.analyzer.Analyze(ctx, c.index, bestBetAnalyzer, query)
	if errors.Is(err, search.ErrRejectedRequest) {
		return "  ", nil
	}
	if err != nil {
		return "", fmt.Errorf("analyze best bet query: %w", err)
	}
	return " " + strings.Join(tokens, " ") + " ", nil
}

type betDetails struct {
	BestBets  []search.RankedLink `json:"best_bets"`
	WorstBets []struct {
		Link string `json:"link"`
	} `json:"worst_bets"`
}

// parseBet reads one metasearch hit. The hit id is "<query>-<type>".
// Stemmed matches are broad, so a bet only counts when its analyzed
// query occurs in the analyzed user query.
func parseBet(hit search.Hit, analyzedQuery string) (search.Bet, bool, error) {
	if term, _ := first(hit.Source["stemmed_query_as_term"]).(string); term != "" && !strings.Contains(analyzedQuery, term) {
		return search.Bet{}, false, nil
	}

	details, err := decodeBetDetails(first(hit.Source["details"]))
	if err != nil {
		return search.Bet{}, false, fmt.Errorf("best bet %q: %w", hit.ID, err)
	}

	bet := search.Bet{Best: details.BestBets}
	if i := strings.LastIndex(hit.ID, "-"); i >= 0 {
		bet.Type = hit.ID[i+1:]
	}
	for _, w := range details.WorstBets {
		bet.Worst = append(bet.Worst, w.Link)
	}
	return bet, true, nil
}

// decodeBetDetails accepts details stored either as a JSON string or as
// an object.
func decodeBetDetails(raw interface{}) (betDetails, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return betDetails{}, nil
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return betDetails{}, fmt.Errorf("encode details: %w", err)
		}
		data = encoded
	}

	var details betDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return betDetails{}, fmt.Errorf("decode details: %w", err)
	}
	return details, nil
}

func first(v interface{}) interface{} {
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}
