package results

import "fmt"

// CSVHeader is the column layout shared by staged files and the master
// dataset: the extraction contract plus the provenance column.
var CSVHeader = []string{"Name", "Category", "RaceName", "Event", "Location", "Rank", "Date", "SourceURL"}

// ToRow serializes a record into CSVHeader order.
func ToRow(r Record) []string {
	return []string{r.Name, r.Category, r.RaceName, r.Event, r.Location, r.Rank, r.Date, r.SourceURL}
}

// FromRow parses one CSV row in CSVHeader order.
func FromRow(row []string) (Record, error) {
	if len(row) != len(CSVHeader) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(CSVHeader), len(row))
	}
	return Record{
		Name:      row[0],
		Category:  row[1],
		RaceName:  row[2],
		Event:     row[3],
		Location:  row[4],
		Rank:      row[5],
		Date:      row[6],
		SourceURL: row[7],
	}, nil
}
