package domain

import "strings"

// dialPrefixes maps international dialing prefixes to ISO country codes.
// Longest prefix wins; anything unmatched resolves to OTHER.
var dialPrefixes = map[string]string{
	"1":   "US",
	"7":   "RU",
	"20":  "EG",
	"27":  "ZA",
	"30":  "GR",
	"31":  "NL",
	"32":  "BE",
	"33":  "FR",
	"34":  "ES",
	"36":  "HU",
	"39":  "IT",
	"40":  "RO",
	"41":  "CH",
	"43":  "AT",
	"44":  "GB",
	"45":  "DK",
	"46":  "SE",
	"47":  "NO",
	"48":  "PL",
	"49":  "DE",
	"51":  "PE",
	"52":  "MX",
	"54":  "AR",
	"55":  "BR",
	"56":  "CL",
	"57":  "CO",
	"58":  "VE",
	"60":  "MY",
	"61":  "AU",
	"62":  "ID",
	"63":  "PH",
	"64":  "NZ",
	"65":  "SG",
	"66":  "TH",
	"81":  "JP",
	"82":  "KR",
	"84":  "VN",
	"86":  "CN",
	"90":  "TR",
	"91":  "IN",
	"92":  "PK",
	"94":  "LK",
	"95":  "MM",
	"98":  "IR",
	"212": "MA",
	"234": "NG",
	"254": "KE",
	"255": "TZ",
	"256": "UG",
	"233": "GH",
	"251": "ET",
	"880": "BD",
	"886": "TW",
	"852": "HK",
	"966": "SA",
	"971": "AE",
	"972": "IL",
	"974": "QA",
	"977": "NP",
}

// ResolveCountry derives an ISO country code from an E.164-style phone
// number by longest dialing-prefix match. Unknown prefixes map to OTHER.
func ResolveCountry(phone string) string {
	digits := strings.TrimLeft(strings.TrimSpace(phone), "+")
	if digits == "" {
		return CountryOther
	}
	for length := 3; length >= 1; length-- {
		if len(digits) < length {
			continue
		}
		if country, ok := dialPrefixes[digits[:length]]; ok {
			return country
		}
	}
	return CountryOther
}
