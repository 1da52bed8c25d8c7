// Package geo maps lead cities to Canadian provinces and summarises where
// stored leads are concentrated.
package geo

import (
	"strings"

	"golang.org/x/text/cases"
)

// Province is a Canadian province or territory.
type Province struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Provinces lists all thirteen provinces and territories, west to east then
// the territories.
var Provinces = []Province{
	{"BC", "British Columbia"},
	{"AB", "Alberta"},
	{"SK", "Saskatchewan"},
	{"MB", "Manitoba"},
	{"ON", "Ontario"},
	{"QC", "Quebec"},
	{"NB", "New Brunswick"},
	{"NS", "Nova Scotia"},
	{"PE", "Prince Edward Island"},
	{"NL", "Newfoundland & Labrador"},
	{"YT", "Yukon"},
	{"NT", "Northwest Territories"},
	{"NU", "Nunavut"},
}

var cityProvince = map[string]string{
	// British Columbia
	"vancouver": "BC", "victoria": "BC", "burnaby": "BC", "surrey": "BC", "kelowna": "BC",
	"richmond": "BC", "nanaimo": "BC", "kamloops": "BC", "abbotsford": "BC",
	// Alberta
	"calgary": "AB", "edmonton": "AB", "red deer": "AB", "lethbridge": "AB",
	"medicine hat": "AB", "fort mcmurray": "AB", "banff": "AB",
	// Saskatchewan
	"saskatoon": "SK", "regina": "SK", "prince albert": "SK",
	// Manitoba
	"winnipeg": "MB", "brandon": "MB", "steinbach": "MB",
	// Ontario
	"toronto": "ON", "ottawa": "ON", "mississauga": "ON", "brampton": "ON",
	"hamilton": "ON", "london": "ON", "kitchener": "ON", "windsor": "ON",
	"waterloo": "ON", "guelph": "ON", "barrie": "ON", "kingston": "ON",
	"oshawa": "ON", "markham": "ON", "vaughan": "ON", "richmond hill": "ON",
	"oakville": "ON", "burlington": "ON", "thunder bay": "ON",
	"st. catharines": "ON", "cambridge": "ON",
	// Quebec
	"montreal": "QC", "montréal": "QC", "quebec city": "QC", "quebec": "QC", "laval": "QC",
	"gatineau": "QC", "sherbrooke": "QC", "trois-rivières": "QC",
	"trois-rivieres": "QC", "longueuil": "QC",
	// New Brunswick
	"saint john": "NB", "moncton": "NB", "fredericton": "NB",
	// Nova Scotia
	"halifax": "NS", "cape breton": "NS", "dartmouth": "NS", "sydney": "NS",
	// Prince Edward Island
	"charlottetown": "PE", "summerside": "PE",
	// Newfoundland & Labrador
	"st. john's": "NL", "st john's": "NL", "corner brook": "NL",
	// Territories
	"whitehorse": "YT", "yellowknife": "NT", "iqaluit": "NU",
}

var folder = cases.Fold()

// ProvinceOf returns the province code for city, or "" when the city is not
// in the table. Matching ignores case and surrounding whitespace.
func ProvinceOf(city string) string {
	return cityProvince[folder.String(strings.TrimSpace(city))]
}

// ProvinceName returns the display name for code.
func ProvinceName(code string) string {
	for _, p := range Provinces {
		if p.Code == code {
			return p.Name
		}
	}
	return ""
}
