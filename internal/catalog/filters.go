package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c2smotors/showroom/internal/models"
)

// Filters are the catalog constraints extracted from a free-form customer
// message. Zero values mean "not constrained".
type Filters struct {
	BodyType     string
	Transmission string
	Fuel         string
	PriceMax     float64
	YearMin      int
	YearFrom     int
	YearTo       int
	Doors        int
}

// Vocabulary maps are ordered: the first key found in the message wins.
var bodyTypes = []struct{ key, value string }{
	{"suv", "SUV"},
	{"hatch", "Hatch"},
	{"sedan", "Sedan"},
	{"picape", "Picape"},
	{"pickup", "Picape"},
	{"perua", "Perua"},
	{"wagon", "Perua"},
	{"coupe", "Coupé"},
	{"coupé", "Coupé"},
}

var transmissions = []struct{ key, value string }{
	{"manual", "Manual"},
	{"automatica", "Automática"},
	{"automática", "Automática"},
	{"auto", "Automática"},
	{"cvt", "CVT"},
}

var fuels = []struct{ key, value string }{
	{"flex", "flex"},
	{"gasolina", "gasolina"},
	{"alcool", "alcool"},
	{"álcool", "alcool"},
	{"etanol", "alcool"},
	{"diesel", "diesel"},
	{"elétrico", "eletrico"},
	{"eletrico", "eletrico"},
	{"híbrido", "hibrido"},
	{"hibrido", "hibrido"},
}

var (
	pricePTRe   = regexp.MustCompile(`(?i)(?:até|ate|<=|<|por|no\s+máximo)\s*R?\$?\s*([\d\.\,]+)`)
	priceNumRe  = regexp.MustCompile(`(?i)(\d{2,3}[\.\d]*)\s*(?:mil)?`)
	yearMinRe   = regexp.MustCompile(`(?i)(?:a partir de|>=|de)\s*((?:19|20)\d{2})`)
	yearRangeRe = regexp.MustCompile(`((?:19|20)\d{2})\s*-\s*((?:19|20)\d{2})`)
	doorsRe     = regexp.MustCompile(`(?i)\b(2|4|5)\s*portas`)
)

// ParseFilters extracts catalog filters from a customer message. The
// vocabulary is pt-BR: "SUV automático até 120 mil, a partir de 2020" yields
// body type, transmission, a max price of 120000 and a min year of 2020.
func ParseFilters(message string) Filters {
	msg := strings.ToLower(message)
	var f Filters

	for _, bt := range bodyTypes {
		if strings.Contains(msg, bt.key) {
			f.BodyType = bt.value
			break
		}
	}
	for _, tr := range transmissions {
		if strings.Contains(msg, tr.key) {
			f.Transmission = tr.value
			break
		}
	}
	for _, fu := range fuels {
		if strings.Contains(msg, fu.key) {
			f.Fuel = fu.value
			break
		}
	}

	if m := pricePTRe.FindStringSubmatch(msg); m != nil {
		if v, ok := parseMoney(m[1]); ok {
			f.PriceMax = v
		}
	} else if strings.Contains(msg, "mil") {
		// "até 120 mil" without a currency marker.
		if m := priceNumRe.FindStringSubmatch(msg); m != nil {
			if v, ok := parseMoney(m[0]); ok {
				f.PriceMax = v
			}
		}
	}

	if m := yearMinRe.FindStringSubmatch(msg); m != nil {
		f.YearMin, _ = strconv.Atoi(m[1])
	}
	if m := yearRangeRe.FindStringSubmatch(msg); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		f.YearFrom, f.YearTo = min(a, b), max(a, b)
	}
	if m := doorsRe.FindStringSubmatch(msg); m != nil {
		f.Doors, _ = strconv.Atoi(m[1])
	}

	return f
}

// parseMoney normalizes pt-BR money text ("120 mil", "120.000", "95.000,00")
// to a float. Bare numbers under a thousand are read as thousands.
func parseMoney(s string) (float64, bool) {
	m := priceNumRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if v < 1000 {
		v *= 1000
	}
	return v, true
}

// Match reports whether v satisfies every set filter. String comparisons are
// case-insensitive.
func (f Filters) Match(v models.Vehicle) bool {
	if f.BodyType != "" && !strings.EqualFold(f.BodyType, v.BodyType) {
		return false
	}
	if f.Transmission != "" && !strings.EqualFold(f.Transmission, v.Transmission) {
		return false
	}
	if f.Fuel != "" && !strings.EqualFold(f.Fuel, v.FuelType) {
		return false
	}
	if f.PriceMax > 0 && v.Price > f.PriceMax {
		return false
	}
	if f.YearMin > 0 && v.Year < f.YearMin {
		return false
	}
	if f.YearFrom > 0 && (v.Year < f.YearFrom || v.Year > f.YearTo) {
		return false
	}
	if f.Doors > 0 && v.Doors != f.Doors {
		return false
	}
	return true
}
