// Package wikidata pulls company data from the Wikidata SPARQL endpoint
// through an anonymized fetch session and converts the tabular results into
// an RDF knowledge graph.
//
// The endpoint is queried with SELECT queries returning CSV rather than
// CONSTRUCT queries returning RDF: CONSTRUCT is markedly slower on the
// public endpoint and times out on larger result sets, so the CSV is
// converted to Turtle locally.
package wikidata
