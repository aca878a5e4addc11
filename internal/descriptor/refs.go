package descriptor

import (
	"regexp"
	"strings"

	"github.com/nexdatas/nxstools/internal/xmldoc"
)

const refPrefix = "$datasources."

var refPattern = regexp.MustCompile(`\$datasources\.([\w\-]+)`)

// DataSourceRef returns the text referencing the named datasource.
func DataSourceRef(name string) string {
	return refPrefix + name
}

// DataSourceRefs lists the datasource names referenced in text, in order of
// first appearance and without duplicates.
func DataSourceRefs(text string) []string {
	names := []string{}
	seen := map[string]bool{}

	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}

		seen[m[1]] = true
		names = append(names, m[1])
	}

	return names
}

// InlineDataSources parses the datasources defined inside a component document.
func InlineDataSources(component string) ([]*DataSource, error) {
	doc, err := xmldoc.Parse(component)
	if err != nil {
		return nil, err
	}

	out := []*DataSource{}

	for _, e := range doc.FindElements("//" + datasourceTag) {
		if e.SelectAttrValue("name", "") == "" {
			continue
		}

		ds, err := dataSourceFromElement(e)
		if err != nil {
			return nil, err
		}

		out = append(out, ds)
	}

	return out, nil
}

// RecordName returns what a datasource reads: the record name of TANGO and CLIENT
// datasources, the query of DB datasources, or an empty string.
func (ds *DataSource) RecordName() string {
	switch ds.Type {
	case TypeTango, TypeClient:
		return ds.Record
	case TypeDB:
		return strings.TrimSpace(ds.Query)
	default:
		return ""
	}
}
