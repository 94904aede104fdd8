package wikidata

// Entity classes and industries selected by the queries:
// types Q891723 (public company), Q4830453 (business), Q163740 (nonprofit);
// industries Q3510521 (computer security), Q21157865 (cybersecurity),
// Q880371 (computer network), Q638608 (cloud computing), Q484847
// (cryptocurrency), Q97466080 (information technology), Q11451 (agriculture).
// The focused industry list keeps result sets small enough to avoid endpoint
// timeouts.

// countQuery counts distinct matching companies. Run before the full
// download to refuse result sets the endpoint would time out on.
const countQuery = `SELECT (COUNT(DISTINCT ?company) as ?count)
WHERE {
  VALUES ?type { wd:Q891723 wd:Q4830453 wd:Q163740 }
  VALUES ?industry { wd:Q3510521 wd:Q21157865 wd:Q880371 wd:Q638608 wd:Q484847 wd:Q97466080 wd:Q11451 }
  ?company wdt:P31/wdt:P279* ?type ;
           wdt:P452 ?industry ;
           rdfs:label ?companyName .
  FILTER(LANG(?companyName) = "en")
}`

// companiesQuery selects company details with optional inception and
// ownership relations. Optional fields produce one row per combination, so
// a company can span multiple rows.
const companiesQuery = `SELECT DISTINCT ?company ?companyName ?industry ?inception ?owns ?ownsName ?ownedBy ?ownedByName
WHERE {
  VALUES ?type { wd:Q891723 wd:Q4830453 wd:Q163740 }
  VALUES ?industry { wd:Q3510521 wd:Q21157865 wd:Q880371 wd:Q638608 wd:Q484847 wd:Q97466080 wd:Q11451 }
  ?company wdt:P31/wdt:P279* ?type ;
           wdt:P452 ?industry ;
           rdfs:label ?companyName .
  FILTER(LANG(?companyName) = "en")

  OPTIONAL { ?company wdt:P571 ?inception }

  OPTIONAL {
    ?company wdt:P1830 ?owns .
    OPTIONAL {
      ?owns rdfs:label ?ownsName .
      FILTER(LANG(?ownsName) = "en")
    }
  }

  OPTIONAL {
    ?company wdt:P127 ?ownedBy .
    OPTIONAL {
      ?ownedBy rdfs:label ?ownedByName .
      FILTER(LANG(?ownedByName) = "en")
    }
  }
}
ORDER BY ?companyName`
