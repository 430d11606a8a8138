// Package extractor turns source documents into structured result rows
// via an external extraction service.
package extractor

import (
	"strings"

	"github.com/racewatch/racewatch/internal/results"
)

// OutputHeader is the fixed CSV header the extraction service is
// instructed to produce. The staged provenance column is appended by
// the orchestrator, not requested from the service.
const OutputHeader = "Name,Category,RaceName,Event,Location,Rank,Date"

// BuildPrompt assembles the natural-language extraction instruction
// for one document from the monitoring criteria.
func BuildPrompt(criteria results.Criteria) string {
	var b strings.Builder
	b.WriteString("You are an expert in data extraction from PDF files.\n")
	b.WriteString("Analyze the attached PDF, which contains ski race results.\n")
	b.WriteString("Extract all results for the following clubs and athletes.\n")

	if len(criteria.Clubs) > 0 {
		b.WriteString("Clubs to extract: ")
		b.WriteString(strings.Join(criteria.Clubs, ", "))
		b.WriteString("\n")
	}
	if len(criteria.Athletes) > 0 {
		b.WriteString("Athletes to extract:\n")
		for _, name := range criteria.Athletes {
			b.WriteString("- ")
			b.WriteString(name)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nFormat the output as a CSV with these exact headers: ")
	b.WriteString(OutputHeader)
	b.WriteString("\n")
	b.WriteString("The final output should ONLY be the CSV data and nothing else (no introductory text or markdown).\n")
	return b.String()
}
