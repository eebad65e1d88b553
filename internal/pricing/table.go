package pricing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableRows is the result of looking up a table by id in an HTML page.
type TableRows struct {
	Rows       *goquery.Selection
	TableFound bool
	TableCount int
	RowCount   int
	// Recovered is set when the rows came from the regex fallback.
	Recovered bool
}

// NewDocument parses an HTML string.
func NewDocument(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ExtractTableRows returns the rows of table#tableID. When the structured parse finds no
// rows, the table markup is cut out with a regex and parsed on its own; this recovers tables
// embedded in scripts or broken markup the parser could not attach to the tree.
func ExtractTableRows(html, tableID string) (TableRows, error) {
	out := TableRows{TableFound: strings.Contains(html, tableID)}

	doc, err := NewDocument(html)
	if err != nil {
		return out, err
	}
	selector := fmt.Sprintf(`table[id="%s"]`, tableID)
	out.TableCount = doc.Find(selector).Length()
	out.Rows = doc.Find(selector + " tr")
	out.RowCount = out.Rows.Length()
	if out.RowCount > 0 {
		return out, nil
	}

	pattern := regexp.MustCompile(`(?i)<table[^>]*id=["']` + regexp.QuoteMeta(tableID) + `["'][\s\S]*?</table>`)
	match := pattern.FindString(html)
	if match == "" {
		return out, nil
	}

	fragment, err := NewDocument("<html><body>" + match + "</body></html>")
	if err != nil {
		return out, err
	}
	out.Rows = fragment.Find(selector + " tr")
	out.RowCount = out.Rows.Length()
	if out.TableCount < 1 {
		out.TableCount = 1
	}
	out.Recovered = true
	return out, nil
}

// CellText returns the trimmed text of a node.
func CellText(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Text())
}
