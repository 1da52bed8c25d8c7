package geo

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
)

// ProvinceCount is the number of leads in one province.
type ProvinceCount struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CityCount is the number of leads recorded under one city spelling.
// Province is nil for unmapped cities.
type CityCount struct {
	City     string  `json:"city"`
	Count    int     `json:"count"`
	Province *string `json:"province"`
}

// Summary is the geography breakdown of stored leads.
type Summary struct {
	Provinces  []ProvinceCount `json:"provinces"`
	Cities     []CityCount     `json:"cities"`
	TotalLeads int             `json:"totalLeads"`
	Unmapped   int             `json:"unmapped"`
}

// Summarize counts cities as stored. Every province appears in the result,
// including those with no leads; cities are ordered by count descending.
func Summarize(cities []string) Summary {
	byProvince := make(map[string]int)
	byCity := make(map[string]int)
	var order []string
	unmapped := 0

	for _, city := range cities {
		if _, seen := byCity[city]; !seen {
			order = append(order, city)
		}
		byCity[city]++
		if code := ProvinceOf(city); code != "" {
			byProvince[code]++
		} else {
			unmapped++
		}
	}

	s := Summary{
		Provinces:  make([]ProvinceCount, 0, len(Provinces)),
		Cities:     make([]CityCount, 0, len(order)),
		TotalLeads: len(cities),
		Unmapped:   unmapped,
	}
	for _, p := range Provinces {
		s.Provinces = append(s.Provinces, ProvinceCount{Code: p.Code, Name: p.Name, Count: byProvince[p.Code]})
	}
	for _, city := range order {
		cc := CityCount{City: city, Count: byCity[city]}
		if code := ProvinceOf(city); code != "" {
			cc.Province = &code
		}
		s.Cities = append(s.Cities, cc)
	}
	sort.SliceStable(s.Cities, func(i, j int) bool { return s.Cities[i].Count > s.Cities[j].Count })
	return s
}

// CitySource lists the city of every stored lead.
type CitySource interface {
	LeadCities(ctx context.Context) ([]string, error)
}

// Load reads cities from src and summarises them.
func Load(ctx context.Context, src CitySource) (Summary, error) {
	cities, err := src.LeadCities(ctx)
	if err != nil {
		return Summary{}, eris.Wrap(err, "geo: load cities")
	}
	return Summarize(cities), nil
}
