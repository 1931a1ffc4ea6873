package headlines

import (
	"context"
	"sort"
)

// StaticSupply serves pre-authored batches. It holds no consumption
// state: which batches count as used is the caller's call, expressed
// through the exclude set derived from persisted rounds. A batch
// handed out but never persisted (a round-creation race loser
// discards its fetch) therefore stays available to later games.
type StaticSupply struct {
	batches map[string]Batch
}

func NewStaticSupply(batches []Batch) *StaticSupply {
	indexed := make(map[string]Batch, len(batches))
	for _, batch := range batches {
		indexed[batch.ID] = batch
	}
	return &StaticSupply{batches: indexed}
}

// NextBatch returns the lowest-id batch not in exclude. Ids are
// ordered so every client asking with the same exclusions converges
// on the same batch.
func (s *StaticSupply) NextBatch(_ context.Context, exclude map[string]struct{}) (Batch, error) {
	ids := make([]string, 0, len(s.batches))
	for id := range s.batches {
		if _, ok := exclude[id]; ok {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return Batch{}, ErrExhausted
	}
	sort.Strings(ids)
	return s.batches[ids[0]], nil
}

// DefaultBatches is the built-in dataset used when no live news
// source is configured.
func DefaultBatches() []Batch {
	return []Batch{
		{
			ID: "batch-001",
			Headlines: [4]Headline{
				{Title: "Global Climate Summit Reaches Historic Agreement on Carbon Emissions", URL: "https://example.com/climate-summit"},
				{Title: "Tech Giant Announces Revolutionary Quantum Computing Breakthrough", URL: "https://example.com/quantum-computing"},
				{Title: "New Medical Treatment Shows Promise in Clinical Trials", URL: "https://example.com/medical-treatment"},
				{Title: "Scientists Discover That Trees Can Now Walk at Night, Local Parks on High Alert", IsLie: true},
			},
		},
		{
			ID: "batch-002",
			Headlines: [4]Headline{
				{Title: "Central Banks Signal Coordinated Response to Inflation Pressures", URL: "https://example.com/central-banks"},
				{Title: "Breaking: International Space Station Accidentally Left in Uber, NASA Scrambles to Retrieve", IsLie: true},
				{Title: "Renewable Energy Capacity Surpasses Coal for First Time in Europe", URL: "https://example.com/renewables"},
				{Title: "Major Airline Unveils Plans for Transatlantic Electric Flights by 2035", URL: "https://example.com/electric-flights"},
			},
		},
		{
			ID: "batch-003",
			Headlines: [4]Headline{
				{Title: "Study Finds That Cats Have Been Secretly Running the Internet All Along", IsLie: true},
				{Title: "Archaeologists Uncover Roman-Era Trading Post Beneath City Center", URL: "https://example.com/roman-dig"},
				{Title: "New Rail Link Cuts Cross-Border Travel Time in Half", URL: "https://example.com/rail-link"},
				{Title: "Marine Biologists Map Previously Unknown Deep-Sea Coral Reef", URL: "https://example.com/coral-reef"},
			},
		},
		{
			ID: "batch-004",
			Headlines: [4]Headline{
				{Title: "World Health Organization Approves New Malaria Vaccine for Children", URL: "https://example.com/malaria-vaccine"},
				{Title: "Drought-Resistant Wheat Variety Clears Final Regulatory Hurdle", URL: "https://example.com/wheat"},
				{Title: "New Research Shows That Pizza Officially Recognized as a Vegetable by UN", IsLie: true},
				{Title: "City Council Votes to Convert Disused Rail Yard Into Public Park", URL: "https://example.com/rail-yard-park"},
			},
		},
		{
			ID: "batch-005",
			Headlines: [4]Headline{
				{Title: "Astronomers Detect Water Vapor in Atmosphere of Distant Exoplanet", URL: "https://example.com/exoplanet"},
				{Title: "National Library Completes Decade-Long Digitization of Rare Manuscripts", URL: "https://example.com/manuscripts"},
				{Title: "Electric Vehicle Sales Overtake Diesel Across the Continent", URL: "https://example.com/ev-sales"},
				{Title: "Archaeologists Unearth Ancient Smartphone Dating Back to 3000 BC", IsLie: true},
			},
		},
		{
			ID: "batch-006",
			Headlines: [4]Headline{
				{Title: "Breaking News: Time Travel Invented Yesterday, Announced Last Week", IsLie: true},
				{Title: "Engineers Test Bridge Built Entirely From Recycled Plastic", URL: "https://example.com/plastic-bridge"},
				{Title: "Survey Shows Record Numbers Commuting by Bicycle in Capital", URL: "https://example.com/bike-commute"},
				{Title: "International Team Sequences Genome of Endangered Snow Leopard", URL: "https://example.com/snow-leopard"},
			},
		},
	}
}
