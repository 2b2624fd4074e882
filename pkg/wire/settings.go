package wire

// Wallet record attributes the batch file columns map onto.
const (
	FieldAmount  int32 = 1
	FieldNote    int32 = 2
	FieldDate    int32 = 3
	FieldExpense int32 = 6
)

// DatePattern is the Java-style timestamp pattern Wallet applies to the date
// column.
const DatePattern = "yyyy-MM-dd'T'HH:mm:ss.SSSSSSZ"

// DefaultImportSettings returns the configuration matching files written by
// the csv package: date, note, amount, expense, comma separated, UTC.
func DefaultImportSettings() *ImportSettings {
	return &ImportSettings{
		Columns: []ColumnMapping{
			{Field: FieldDate, Column: 0},
			{Field: FieldNote, Column: 1},
			{Field: FieldAmount, Column: 2},
			{Field: FieldExpense, Column: 3},
		},
		Formats: []Format{{
			Version:     1,
			ColumnCount: 5,
			HeaderLines: 1,
			Delimiter:   ",",
			Timezone:    "UTC",
			DateKind:    5,
			DatePattern: DatePattern,
		}},
	}
}
