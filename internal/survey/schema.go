// Package survey holds the NYCHVS record schema and the cleaning and
// recoding stages applied to the joined survey table.
package survey

import "github.com/KaramelBytes/nychvs-cli/internal/table"

// Column names of the joined survey record.
const (
	ColControl     = "CONTROL"
	ColBorough     = "BORO"
	ColUnitRating  = "UNIT_RATING"
	ColRent        = "RENT_AMOUNT"
	ColUtilSummer  = "UTIL_SUMMER"
	ColUtilWinter  = "UTIL_WINTER"
	ColPets        = "PETS"
	ColLeaseLength = "LEASE_LENGTH"
	ColGrossRent   = "GROSS_RENT"
	ColProblems    = "NUM_PROBLEMS"
	ColRodents     = "RODENTS"
	ColIncome      = "HHINC"
	ColRace        = "RACE"
	ColGender      = "GENDER"
	ColAge         = "AGE"
)

// Source identifies one of the three survey extracts.
type Source string

const (
	AllUnits Source = "allunits"
	Occupied Source = "occupied"
	Person   Source = "person"
)

// Sources lists the extracts in join order.
var Sources = []Source{AllUnits, Occupied, Person}

// SchemaFor returns the fields the given extract must supply, keyed on key.
func SchemaFor(src Source, key string) table.Schema {
	s := table.Schema{{Name: key, Kind: table.KindID}}
	switch src {
	case AllUnits:
		s = append(s,
			table.Field{Name: ColBorough, Kind: table.KindCode},
			table.Field{Name: ColUnitRating, Kind: table.KindNumber},
		)
	case Occupied:
		s = append(s,
			table.Field{Name: ColRent, Kind: table.KindNumber},
			table.Field{Name: ColUtilSummer, Kind: table.KindNumber},
			table.Field{Name: ColUtilWinter, Kind: table.KindNumber},
			table.Field{Name: ColPets, Kind: table.KindCode},
			table.Field{Name: ColLeaseLength, Kind: table.KindNumber},
			table.Field{Name: ColGrossRent, Kind: table.KindNumber},
			table.Field{Name: ColProblems, Kind: table.KindNumber},
			table.Field{Name: ColRodents, Kind: table.KindCode},
			table.Field{Name: ColIncome, Kind: table.KindNumber},
		)
	case Person:
		s = append(s,
			table.Field{Name: ColRace, Kind: table.KindCode},
			table.Field{Name: ColGender, Kind: table.KindCode},
			table.Field{Name: ColAge, Kind: table.KindNumber},
		)
	}
	return s
}

// NumericColumns are the analyzed amounts and counts.
var NumericColumns = []string{
	ColRent, ColUtilSummer, ColUtilWinter, ColLeaseLength, ColGrossRent,
	ColProblems, ColUnitRating, ColIncome, ColAge,
}

// GroupColumns are the category columns that form aggregate keys. A row
// without a usable code in any of them is dropped during cleaning.
var GroupColumns = []string{ColBorough, ColGender, ColRace}
