package querybuilder

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/goto/sitesearch/core/search"
	"github.com/olivere/elastic/v7"
	"gopkg.in/yaml.v2"
)

const (
	timeBoostScript  = "((0.05 / ((3.16*Math.pow(10,-11)) * Math.abs(params.now - doc['public_timestamp'].date.getMillis()) + 0.05)) + 0.12)"
	popularityScript = "doc['popularity'].size() == 0 ? params.offset : doc['popularity'].value + params.offset"

	popularityOffset   = 0.001
	popularityMaxBoost = 5
)

//go:embed boosting.yml
var boostingConfig []byte

// PropertyBoost multiplies the score of documents whose property has the
// given value.
type PropertyBoost struct {
	Property string
	Value    interface{}
	Weight   float64
}

var defaultBoosts = mustParseBoosts(boostingConfig)

// ParseBoosts reads the "base" section of a boosting configuration,
// keeping the order of the file.
func ParseBoosts(data []byte) ([]PropertyBoost, error) {
	var doc struct {
		Base yaml.MapSlice `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode boosting config: %w", err)
	}

	var boosts []PropertyBoost
	for _, prop := range doc.Base {
		name, ok := prop.Key.(string)
		if !ok {
			return nil, fmt.Errorf("invalid boost property %v", prop.Key)
		}
		values, ok := prop.Value.(yaml.MapSlice)
		if !ok {
			return nil, fmt.Errorf("boosts for %q must be a mapping", name)
		}
		for _, v := range values {
			weight, err := toFloat(v.Value)
			if err != nil {
				return nil, fmt.Errorf("boost %q=%v: %w", name, v.Key, err)
			}
			boosts = append(boosts, PropertyBoost{Property: name, Value: v.Key, Weight: weight})
		}
	}
	return boosts, nil
}

func mustParseBoosts(data []byte) []PropertyBoost {
	boosts, err := ParseBoosts(data)
	if err != nil {
		panic(err)
	}
	return boosts
}

func toFloat(v interface{}) (float64, error) {
	switch v := v.(type) {
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("weight must be a number, got %T", v)
	}
}

// Booster multiplies relevance by per-property weights and a freshness
// boost for announcements.
type Booster struct {
	params search.QueryParameters
	boosts []PropertyBoost
	now    time.Time
}

func NewBooster(params search.QueryParameters, now time.Time) Booster {
	return Booster{params: params, boosts: defaultBoosts, now: now}
}

// Wrap returns core unchanged when boosting is disabled.
func (b Booster) Wrap(core elastic.Query) elastic.Query {
	if b.params.Debug().DisableBoosting {
		return core
	}

	fsq := elastic.NewFunctionScoreQuery().
		Query(elastic.NewBoolQuery().Should(core)).
		BoostMode("multiply").
		ScoreMode("multiply")
	for _, pb := range b.boosts {
		fsq = fsq.Add(elastic.NewTermQuery(pb.Property, pb.Value), elastic.NewWeightFactorFunction(pb.Weight))
	}
	return fsq.Add(
		elastic.NewTermQuery("search_format_types", "announcement"),
		elastic.NewScriptFunction(
			elastic.NewScript(timeBoostScript).
				Lang("painless").
				Param("now", TimeInMillisToNearestMinute(b.now)),
		),
	)
}

// TimeInMillisToNearestMinute truncates t to the minute, in epoch millis.
// Queries built within the same minute are identical and cache well.
func TimeInMillisToNearestMinute(t time.Time) int64 {
	return (t.Unix() / 60) * 60000
}

// Popularity multiplies relevance by the popularity of the document.
type Popularity struct {
	params search.QueryParameters
}

func NewPopularity(params search.QueryParameters) Popularity {
	return Popularity{params: params}
}

func (p Popularity) Wrap(core elastic.Query) elastic.Query {
	if p.params.Debug().DisablePopularity {
		return core
	}
	return elastic.NewFunctionScoreQuery().
		Query(core).
		BoostMode("multiply").
		MaxBoost(popularityMaxBoost).
		AddScoreFunc(elastic.NewScriptFunction(
			elastic.NewScript(popularityScript).
				Lang("painless").
				Param("offset", popularityOffset),
		))
}
