package normalize

import (
	"context"
	"regexp"
	"strings"
)

// UnitedStates is the sentinel location for empty or country-level inputs.
const UnitedStates = "united states"

// Geocoder refines a raw location string into a canonical place name.
// It is an optional external collaborator: any error is swallowed by the
// location normalizer, which falls back to its rule tables.
type Geocoder interface {
	Locate(ctx context.Context, location string) (string, error)
}

// Location canonicalizes free-text locations into metro areas,
// "<city>, <state>" pairs, bare state names, or the united-states sentinel.
type Location struct {
	states      map[string]string // abbreviation -> full name (lowercase)
	stateNames  map[string]struct{}
	metros      map[string]struct{}
	cityToMetro map[string]string
	geocoder    Geocoder
}

// NewLocation creates a location normalizer. geocoder may be nil.
func NewLocation(geocoder Geocoder) *Location {
	states := map[string]string{
		"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
		"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
		"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho",
		"IL": "illinois", "IN": "indiana", "IA": "iowa", "KS": "kansas",
		"KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
		"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi",
		"MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
		"NH": "new hampshire", "NJ": "new jersey", "NM": "new mexico", "NY": "new york",
		"NC": "north carolina", "ND": "north dakota", "OH": "ohio", "OK": "oklahoma",
		"OR": "oregon", "PA": "pennsylvania", "RI": "rhode island", "SC": "south carolina",
		"SD": "south dakota", "TN": "tennessee", "TX": "texas", "UT": "utah",
		"VT": "vermont", "VA": "virginia", "WA": "washington", "WV": "west virginia",
		"WI": "wisconsin", "WY": "wyoming", "DC": "district of columbia",
	}

	metroCities := map[string][]string{
		"san francisco bay area":            {"san francisco", "oakland", "san jose", "silicon valley", "fremont", "palo alto", "mountain view", "redwood city", "santa clara", "sunnyvale", "hayward", "san leandro"},
		"greater boston":                    {"boston", "cambridge", "waltham", "braintree", "chelsea", "billerica"},
		"greater seattle area":              {"seattle", "bellevue", "redmond", "bothell", "renton", "everett"},
		"greater chicago area":              {"chicago", "evanston", "naperville", "schaumburg"},
		"new york city metropolitan area":   {"new york", "brooklyn", "jersey city", "newark", "manhattan"},
		"washington dc-baltimore area":      {"washington dc", "washington d.c.", "baltimore", "arlington", "alexandria", "mclean", "fairfax", "tysons"},
		"greater los angeles area":          {"los angeles", "long beach", "anaheim", "burbank", "glendale", "santa monica"},
		"greater houston":                   {"houston", "spring", "the woodlands", "sugar land"},
		"dallas-fort worth metroplex":       {"dallas", "fort worth", "irving", "plano", "arlington", "richardson"},
		"greater atlanta":                   {"atlanta", "alpharetta", "duluth", "smyrna"},
		"greater philadelphia":              {"philadelphia", "camden", "wilmington", "king of prussia"},
		"greater phoenix area":              {"phoenix", "scottsdale", "tempe", "chandler", "mesa"},
		"greater pittsburgh region":         {"pittsburgh", "allegheny"},
		"greater sacramento":                {"sacramento", "roseville", "folsom"},
		"greater minneapolis-st. paul area": {"minneapolis", "st paul", "saint paul", "bloomington"},
	}

	stateNames := make(map[string]struct{}, len(states))
	for _, name := range states {
		stateNames[name] = struct{}{}
	}

	metros := make(map[string]struct{}, len(metroCities))
	cityToMetro := make(map[string]string)
	for metro, cities := range metroCities {
		metros[metro] = struct{}{}
		for _, city := range cities {
			cityToMetro[city] = metro
		}
	}

	return &Location{
		states:      states,
		stateNames:  stateNames,
		metros:      metros,
		cityToMetro: cityToMetro,
		geocoder:    geocoder,
	}
}

var (
	countryVariants = map[string]struct{}{
		"united states": {}, "us": {}, "usa": {}, "u.s.": {}, "u.s.a.": {},
	}
	boilerplateParts = map[string]struct{}{
		"united states": {}, "us": {}, "usa": {},
		"area": {}, "region": {}, "metropolitan": {}, "metro": {}, "metroplex": {},
	}
	locationPrefix = regexp.MustCompile(`^greater\s+|^the\s+`)
	partSeparator  = regexp.MustCompile(`[,|-]`)
)

// Normalize maps a raw location to its canonical key. Deterministic for a
// fixed geocoder response; geocoder failures degrade to pure rule matching.
func (n *Location) Normalize(ctx context.Context, location string, useGeocoder bool) string {
	if location == "" || strings.EqualFold(location, "not specified") {
		return UnitedStates
	}

	location = strings.ToLower(strings.TrimSpace(location))

	if useGeocoder && n.geocoder != nil {
		location = n.refine(ctx, location)
	}

	if _, ok := countryVariants[location]; ok {
		return UnitedStates
	}

	location = locationPrefix.ReplaceAllString(location, "")

	var parts []string
	for _, p := range partSeparator.Split(location, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, drop := boilerplateParts[p]; drop {
			continue
		}
		parts = append(parts, p)
	}

	if len(parts) == 0 {
		return UnitedStates
	}

	for _, part := range parts {
		if _, ok := n.metros[part]; ok {
			return part
		}
		if metro, ok := n.cityToMetro[part]; ok {
			return metro
		}
	}

	for _, part := range parts {
		if state, ok := n.states[strings.ToUpper(part)]; ok {
			if len(parts) > 1 {
				return parts[0] + ", " + state
			}
			return state
		}
	}

	for _, part := range parts {
		if _, ok := n.stateNames[part]; ok {
			return part
		}
	}

	return parts[0] + ", " + UnitedStates
}

// refine asks the geocoder for a canonical place name. The query is pinned to
// the united states to match the indexed corpus.
func (n *Location) refine(ctx context.Context, location string) string {
	query := location
	if !strings.Contains(query, UnitedStates) {
		query += ", " + UnitedStates
	}

	name, err := n.geocoder.Locate(ctx, query)
	if err != nil || name == "" {
		return location
	}
	return strings.ToLower(strings.TrimSpace(name))
}
