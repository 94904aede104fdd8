package wikidata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// defaultIndustry is applied when a row carries no industry: Q3510521,
// computer security.
const defaultIndustry = "Q3510521"

// rdfPrefixes heads every generated Turtle document.
const rdfPrefixes = `@prefix wd: <http://www.wikidata.org/entity/> .
@prefix wdt: <http://www.wikidata.org/prop/direct/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

`

// relation is one ownership edge to another entity.
type relation struct {
	id    string
	label string
}

// companyData aggregates the rows of one company. The CSV carries one row
// per optional-field combination, so a company usually spans several rows.
type companyData struct {
	label     string
	industry  string
	inception string
	owns      []relation
	ownedBy   []relation
}

// ConvertFile converts a downloaded company CSV file to Turtle.
func ConvertFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path comes from our own download step
	if err != nil {
		return "", fmt.Errorf("failed to read CSV file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Convert(f)
}

// Convert converts company CSV rows (company, companyName, industry,
// inception, owns, ownsName, ownedBy, ownedByName) to Turtle.
//
// Design decision: companies are emitted in first-seen order. The SPARQL
// query orders rows by company name, and keeping that order makes the
// output deterministic and diffable across runs.
func Convert(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	companies := make(map[string]*companyData)
	var order []string

	header := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse CSV: %w", err)
		}
		if header {
			header = false
			continue
		}

		companyURI := field(record, 0)
		if companyURI == "" {
			continue
		}
		id := lastSegment(companyURI)

		company, ok := companies[id]
		if !ok {
			company = &companyData{
				label:     escapeLabel(field(record, 1)),
				industry:  lastSegment(field(record, 2)),
				inception: field(record, 3),
			}
			companies[id] = company
			order = append(order, id)
		}

		company.addOwns(field(record, 4), field(record, 5))
		company.addOwnedBy(field(record, 6), field(record, 7))
	}

	var b strings.Builder
	b.WriteString(rdfPrefixes)

	emittedLabels := make(map[string]bool)
	for _, id := range order {
		writeCompany(&b, id, companies[id])
		writeRelationLabels(&b, companies[id], emittedLabels)
	}

	return b.String(), nil
}

// addOwns records an owner-of edge when the row carries one.
func (c *companyData) addOwns(uri, name string) {
	if uri == "" {
		return
	}
	c.owns = appendRelation(c.owns, uri, name)
}

// addOwnedBy records an owned-by edge when the row carries one.
func (c *companyData) addOwnedBy(uri, name string) {
	if uri == "" {
		return
	}
	c.ownedBy = appendRelation(c.ownedBy, uri, name)
}

// appendRelation adds an edge unless the entity is already recorded.
// The optional blocks of the query multiply rows, so the same edge
// reappears across a company's rows.
func appendRelation(relations []relation, uri, name string) []relation {
	id := lastSegment(uri)
	for _, existing := range relations {
		if existing.id == id {
			return relations
		}
	}

	label := escapeLabel(name)
	if label == "" {
		label = id
	}
	return append(relations, relation{id: id, label: label})
}

// writeCompany emits the Turtle statements of one company.
func writeCompany(b *strings.Builder, id string, data *companyData) {
	b.WriteString("wd:" + id + " a wd:Q891723, wd:Q4830453, wd:Q163740 ;\n")
	b.WriteString("    rdfs:label \"" + data.label + "\"@en ;\n")

	industry := data.industry
	if industry == "" {
		industry = defaultIndustry
	}
	b.WriteString("    wdt:P452 wd:" + industry)

	if data.inception != "" {
		b.WriteString(" ;\n    wdt:P571 \"" + data.inception + "\"^^xsd:dateTime")
	}

	writeRelationList(b, "wdt:P1830", data.owns)
	writeRelationList(b, "wdt:P127", data.ownedBy)

	b.WriteString(" .\n\n")
}

// writeRelationList emits a predicate with a comma-joined object list.
func writeRelationList(b *strings.Builder, predicate string, relations []relation) {
	if len(relations) == 0 {
		return
	}

	b.WriteString(" ;\n    " + predicate)
	for i, rel := range relations {
		if i == 0 {
			b.WriteString(" wd:" + rel.id)
		} else {
			b.WriteString(" , wd:" + rel.id)
		}
	}
}

// writeRelationLabels emits one label statement per related entity whose
// English label is known, deduped across the whole document.
func writeRelationLabels(b *strings.Builder, data *companyData, emitted map[string]bool) {
	for _, rel := range append(append([]relation{}, data.owns...), data.ownedBy...) {
		if rel.label == rel.id || emitted[rel.id] {
			continue
		}
		emitted[rel.id] = true
		b.WriteString("wd:" + rel.id + " rdfs:label \"" + rel.label + "\"@en .\n\n")
	}
}

// field returns the CSV column or an empty string when the row is short.
func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}

// lastSegment reduces an entity URI to its final path segment, turning
// "http://www.wikidata.org/entity/Q123" into "Q123".
func lastSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// escapeLabel escapes backslashes and quotes for a Turtle string literal.
func escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)
	return strings.ReplaceAll(label, `"`, `\"`)
}
