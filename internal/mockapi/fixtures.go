package mockapi

import "github.com/arcanalyse/encounter-builder/internal/domain"

// DefaultLookups holds the canned rows per lookup table. Tables without an
// entry are served as empty lists.
var DefaultLookups = map[string][]domain.Lookup{
	"sizes": rows(
		"tiny", "Tiny",
		"small", "Small",
		"medium", "Medium",
		"large", "Large",
		"huge", "Huge",
		"gargantuan", "Gargantuan",
	),
	"creature-types": rows(
		"aberration", "Aberration",
		"beast", "Beast",
		"celestial", "Celestial",
		"construct", "Construct",
		"dragon", "Dragon",
		"elemental", "Elemental",
		"fey", "Fey",
		"fiend", "Fiend",
		"giant", "Giant",
		"humanoid", "Humanoid",
		"monstrosity", "Monstrosity",
		"ooze", "Ooze",
		"plant", "Plant",
		"undead", "Undead",
	),
	"alignments": rows(
		"lg", "Lawful Good",
		"ng", "Neutral Good",
		"cg", "Chaotic Good",
		"ln", "Lawful Neutral",
		"n", "Neutral",
		"cn", "Chaotic Neutral",
		"le", "Lawful Evil",
		"ne", "Neutral Evil",
		"ce", "Chaotic Evil",
		"unaligned", "Unaligned",
	),
	"abilities": rows(
		"str", "Strength",
		"dex", "Dexterity",
		"con", "Constitution",
		"int", "Intelligence",
		"wis", "Wisdom",
		"cha", "Charisma",
	),
	"ac-types": rows(
		"natural", "Natural Armor",
		"armor", "Armor",
		"shield", "Shield",
	),
}

var (
	srdAbbrev    = "SRD"
	srdYear      = 2016
	srdPublisher = "Wizards of the Coast"
)

// DefaultSources holds the canned sources.
var DefaultSources = []domain.Source{
	{ID: 1, Code: "srd", Title: "System Reference Document 5.1", Abbrev: &srdAbbrev, ReleaseYear: &srdYear, Publisher: &srdPublisher},
}

// DefaultCRToXP is the challenge rating to XP table.
var DefaultCRToXP = []domain.CRToXP{
	{ChallengeRating: "0.000", XP: 10},
	{ChallengeRating: "0.125", XP: 25},
	{ChallengeRating: "0.250", XP: 50},
	{ChallengeRating: "0.500", XP: 100},
	{ChallengeRating: "1.000", XP: 200},
	{ChallengeRating: "2.000", XP: 450},
	{ChallengeRating: "3.000", XP: 700},
	{ChallengeRating: "4.000", XP: 1100},
	{ChallengeRating: "5.000", XP: 1800},
	{ChallengeRating: "6.000", XP: 2300},
	{ChallengeRating: "7.000", XP: 2900},
	{ChallengeRating: "8.000", XP: 3900},
	{ChallengeRating: "9.000", XP: 5000},
	{ChallengeRating: "10.000", XP: 5900},
	{ChallengeRating: "11.000", XP: 7200},
	{ChallengeRating: "12.000", XP: 8400},
	{ChallengeRating: "13.000", XP: 10000},
	{ChallengeRating: "14.000", XP: 11500},
	{ChallengeRating: "15.000", XP: 13000},
	{ChallengeRating: "16.000", XP: 15000},
	{ChallengeRating: "17.000", XP: 18000},
	{ChallengeRating: "18.000", XP: 20000},
	{ChallengeRating: "19.000", XP: 22000},
	{ChallengeRating: "20.000", XP: 25000},
	{ChallengeRating: "21.000", XP: 33000},
	{ChallengeRating: "22.000", XP: 41000},
	{ChallengeRating: "23.000", XP: 50000},
	{ChallengeRating: "24.000", XP: 62000},
	{ChallengeRating: "25.000", XP: 75000},
	{ChallengeRating: "26.000", XP: 90000},
	{ChallengeRating: "27.000", XP: 105000},
	{ChallengeRating: "28.000", XP: 120000},
	{ChallengeRating: "29.000", XP: 135000},
	{ChallengeRating: "30.000", XP: 155000},
}

// rows builds lookup rows from code/name pairs with ids starting at 1.
func rows(pairs ...string) []domain.Lookup {
	out := make([]domain.Lookup, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.Lookup{ID: i/2 + 1, Code: pairs[i], Name: pairs[i+1]})
	}
	return out
}

