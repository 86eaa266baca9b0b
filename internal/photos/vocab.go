// Package photos resolves and downloads rights-appropriate images for
// collected items: feed and article page candidates first, Wikimedia
// Commons search as the free-media fallback.
package photos

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the token sets driving search and relevance decisions.
// The built-in defaults cover the automotive press domain; a YAML file can
// replace any of the sets to retarget the pipeline.
type Vocabulary struct {
	Brands        map[string]bool
	Tuners        map[string]bool
	ContextTokens map[string]bool
	StopWords     map[string]bool
	VisualHints   []string
	GenericHints  []string
	NonPhotoHints []string

	// GenericQueries seed the last-resort search when nothing
	// item-specific matched.
	GenericQueries []string
}

type vocabularyFile struct {
	Brands         []string `yaml:"brands"`
	Tuners         []string `yaml:"tuners"`
	ContextTokens  []string `yaml:"context_tokens"`
	StopWords      []string `yaml:"stop_words"`
	VisualHints    []string `yaml:"visual_hints"`
	GenericHints   []string `yaml:"generic_hints"`
	NonPhotoHints  []string `yaml:"non_photo_hints"`
	GenericQueries []string `yaml:"generic_queries"`
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		if value != "" {
			set[value] = true
		}
	}
	return set
}

// DefaultVocabulary returns the built-in automotive vocabulary.
func DefaultVocabulary() *Vocabulary {
	brands := []string{
		"toyota", "stellantis", "kia", "hyundai", "peugeot", "ram", "nissan",
		"ford", "jeep", "honda", "bmw", "audi", "mercedes", "volkswagen",
		"porsche", "mazda", "subaru", "volvo", "renault", "citroen", "opel",
		"fiat", "maserati", "chrysler", "dodge", "lamborghini", "ferrari",
		"bugatti", "mclaren", "bentley", "rolls", "royce", "rolls-royce",
		"aston", "martin", "koenigsegg", "pagani", "rimac", "lotus", "alfa",
		"romeo", "mansory", "tesla", "polestar",
	}

	visualHints := append([]string{}, brands...)
	visualHints = append(visualHints,
		"car", "cars", "vehicle", "vehicles", "automobile", "automobiles",
		"suv", "truck", "pickup", "sedan", "hatchback", "coupe", "wagon",
		"crossover", "motorcycle", "motorbike", "bike", "motorsport",
		"motorsports", "racing", "race", "supercar", "hypercar", "fuel",
		"petrol", "diesel", "gasoline", "tankstelle", "filling_station",
		"gas_station", "pump",
	)

	return &Vocabulary{
		Brands: toSet(brands),
		Tuners: toSet([]string{"mansory", "novitec", "brabus", "abt", "alpina"}),
		ContextTokens: toSet([]string{
			"car", "cars", "engine", "hybrid", "suv", "truck", "vehicle",
			"motorcycle", "motorbike", "bike", "motorsport", "motorsports",
			"racing", "race", "museum", "sedan", "hatchback", "coupe",
			"wagon", "crossover", "horsepower", "torque", "diesel", "petrol",
			"ev", "electric", "auto", "automotive", "automobile",
			"automobiles", "robotaxi", "autonomous", "traffic", "fuel",
			"oil", "price", "avto", "avtomobil", "avtomobile", "avtorynok",
			"avtorynka", "autorynok", "autorynka", "sprit", "spritpreis",
			"kraftstoff", "benzin", "tankstelle", "verkehr",
			"авто", "автомобіль", "автомобілі", "авторинок", "авторинку",
			"пальне", "нафта", "бензин", "дизель", "supercar", "hypercar",
		}),
		StopWords: toSet([]string{
			"the", "and", "for", "with", "from", "that", "this", "when",
			"your", "into", "new", "news", "day", "first", "things", "check",
			"car", "cars", "deal", "month", "returns", "interior", "image",
			"gallery", "best", "take", "takes", "promises", "levels",
			"efficiency", "media", "advisory", "announce", "results",
			"press", "release", "releases", "report", "reports", "reported",
			"estimated", "consolidated", "shipments", "units", "full",
			"year", "quarter", "q1", "q2", "q3", "q4", "fiscal", "resets",
			"business", "meet", "customer", "customers", "preference",
			"preferences", "support", "profitable", "growth", "strategy",
			"strategic", "operations", "global", "group", "company",
			"companies", "official", "statement", "its",
			"january", "february", "march", "april", "may", "june", "july",
			"august", "september", "october", "november", "december",
			"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept",
			"oct", "nov", "dec",
		}),
		VisualHints: visualHints,
		GenericHints: []string{
			"car", "cars", "vehicle", "vehicles", "automobile", "automobiles",
			"auto", "suv", "truck", "pickup", "sedan", "hatchback", "coupe",
			"wagon", "crossover", "motorcycle", "motorbike", "bike",
			"motorsport", "racing",
		},
		NonPhotoHints: []string{
			"chart", "graph", "diagram", "table", "logo", "icon", "map",
			"screenshot", "render", "illustration", "infographic",
			"watermark", "sales_of", "sales-of", "sales ", "figure_",
			"income", "net_income", "marketcap", "market_cap", "stock_price",
			"gare", "plaque", "inaugurale", "badge", "signature",
		},
		GenericQueries: []string{
			"automobile",
			"car",
			"sport utility vehicle",
			"electric car",
			"pickup truck",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary override. Sets absent from the
// file keep their defaults so partial overrides stay cheap.
func LoadVocabulary(path string) (*Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo vocabulary: %w", err)
	}

	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse photo vocabulary: %w", err)
	}

	if len(file.Brands) > 0 {
		vocab.Brands = toSet(file.Brands)
	}
	if len(file.Tuners) > 0 {
		vocab.Tuners = toSet(file.Tuners)
	}
	if len(file.ContextTokens) > 0 {
		vocab.ContextTokens = toSet(file.ContextTokens)
	}
	if len(file.StopWords) > 0 {
		vocab.StopWords = toSet(file.StopWords)
	}
	if len(file.VisualHints) > 0 {
		vocab.VisualHints = file.VisualHints
	}
	if len(file.GenericHints) > 0 {
		vocab.GenericHints = file.GenericHints
	}
	if len(file.NonPhotoHints) > 0 {
		vocab.NonPhotoHints = file.NonPhotoHints
	}
	if len(file.GenericQueries) > 0 {
		vocab.GenericQueries = file.GenericQueries
	}

	return vocab, nil
}
