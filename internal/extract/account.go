package extract

import (
	"regexp"
	"strconv"
	"strings"

	"dcad-backend/internal/normalize"
	"dcad-backend/internal/record"
	"dcad-backend/lib/htmlutil"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	idOwner          = "lblOwner"
	idMultiOwnerGrid = "MultiOwner1_dgmultiOwner"
	idPropertyAddr   = "PropAddr1_lblPropAddr"
	idNeighborhood   = "lblNbhd"
	idMapsco         = "lblMapsco"
	idSaleDate       = "LegalDesc1_lblSaleDate"
	idHearingDate    = "lblHearingDate"
)

var ownerHeaderFragment = regexp.MustCompile(`(?i)owner name\s*ownership\s*%.*$`)

// ownerBoundary reports whether the walk over the owner block must stop at
// node: the multi-owner grid (or anything holding it) and section headers
// end the block.
func ownerBoundary(node *html.Node) bool {
	if node.Type != html.ElementNode {
		return false
	}
	if htmlutil.ID(node) == idMultiOwnerGrid || htmlutil.HasClass(node, "DtlSectionHdr") {
		return true
	}
	return htmlutil.FindByID(node, idMultiOwnerGrid) != nil
}

func ownerLines(start *html.Node) []string {
	var lines []string
	for cur := start.NextSibling; cur != nil; cur = cur.NextSibling {
		if ownerBoundary(cur) {
			break
		}
		var text string
		switch cur.Type {
		case html.TextNode:
			text = normalize.Clean(cur.Data)
		case html.ElementNode:
			text = cellText(cur)
		default:
			continue
		}
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "multi-owner") {
			break
		}
		if strings.Contains(lower, "owner name") && strings.Contains(lower, "ownership") {
			break
		}
		lines = append(lines, text)
	}
	return lines
}

var (
	hasDigit      = regexp.MustCompile(`\d`)
	stateToken    = regexp.MustCompile(`(?i)\b(tx|texas)\b`)
	zipCode       = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	streetNumber  = regexp.MustCompile(`^\s*\d+\s+`)
	streetToken   = regexp.MustCompile(`(?i)\b(apt|unit|ct|ln|rd|dr|st|ave|blvd|hwy|pkwy|cir|trl|way|lane|drive|court|road)\b|#`)
	ownerLabelish = []string{"multi-owner", "owner name", "ownership %", "application received", "hs application", "ownership", "owner("}
)

// continuesName reports whether the second owner line looks like a co-owner
// rather than the start of a mailing address.
func continuesName(s string) bool {
	if len(s) > 40 {
		return false
	}
	return !hasDigit.MatchString(s) && !strings.Contains(s, ",") && !stateToken.MatchString(s) && !zipCode.MatchString(s)
}

func isAddressLine(s string) bool {
	lower := strings.ToLower(s)
	for _, l := range ownerLabelish {
		if strings.Contains(lower, l) {
			return false
		}
	}
	return stateToken.MatchString(s) ||
		zipCode.MatchString(s) ||
		streetNumber.MatchString(s) ||
		streetToken.MatchString(lower) ||
		strings.Contains(s, ",")
}

func stripOwnerHeader(s string) string {
	return strings.Trim(ownerHeaderFragment.ReplaceAllString(s, ""), ", ")
}

// Owner reconstructs the owner name and mailing address from the text that
// follows the owner label, and reads the multi-owner grid when present.
func Owner(root *html.Node) record.Owner {
	out := record.Owner{MultiOwner: []record.MultiOwnerEntry{}}

	if label := htmlutil.FindByID(root, idOwner); label != nil {
		lines := ownerLines(label)
		if len(lines) > 0 {
			name := stripOwnerHeader(lines[0])
			rest := lines[1:]
			if len(lines) > 1 && continuesName(lines[1]) {
				name = name + " " + lines[1]
				rest = lines[2:]
			}
			out.OwnerName = normalize.CleanText(stripOwnerHeader(name))

			var address []string
			for _, l := range rest {
				if isAddressLine(l) {
					address = append(address, l)
				}
			}
			if len(address) > 0 {
				joined := normalize.Clean(strings.Join(address, ", "))
				joined = strings.Trim(strings.ReplaceAll(joined, " ,", ","), ", ")
				out.MailingAddress = normalize.CleanText(joined)
			}
		}
	}

	if grid := htmlutil.FindByID(root, idMultiOwnerGrid); grid != nil {
		rows := htmlutil.Rows(grid)
		for i, row := range rows {
			if i == 0 {
				continue
			}
			tds := cellTexts(dataCells(row))
			if len(tds) < 2 {
				continue
			}
			out.MultiOwner = append(out.MultiOwner, record.MultiOwnerEntry{
				OwnerName:    at(tds, 0),
				OwnershipPct: at(tds, 1),
			})
		}
	}
	return out
}

var (
	buildingToken = regexp.MustCompile(`(?i)\bBldg:\s*\S+`)
	suiteToken    = regexp.MustCompile(`(?i)\s*,?\s*\b(Suite|Ste)\b\s*[:.#]?\s*`)
	spacedComma   = regexp.MustCompile(`\s+,\s+`)
)

var addressIDFragments = []string{"propaddr", "situs", "siteaddr", "lblsitus", "lblpropaddr"}

func cleanAddress(raw string) string {
	raw = buildingToken.ReplaceAllString(raw, "")
	raw = suiteToken.ReplaceAllString(raw, ", Suite ")
	raw = spacedComma.ReplaceAllString(raw, ", ")
	return strings.Trim(normalize.Clean(raw), " ,")
}

// PropertyLocation reads the situs address, neighborhood and mapsco
// reference.
func PropertyLocation(root *html.Node) record.PropertyLocation {
	out := record.PropertyLocation{
		Neighborhood: textByID(root, idNeighborhood),
		Mapsco:       textByID(root, idMapsco),
	}
	if el := htmlutil.FindByID(root, idPropertyAddr); el != nil {
		out.Address = normalize.CleanText(cleanAddress(strings.Join(htmlutil.Lines(el), " ")))
	}
	if !out.Address.Present() {
		cand := htmlutil.Find(root, func(n *html.Node) bool {
			if n.Type != html.ElementNode || htmlutil.ID(n) == idPropertyAddr {
				return false
			}
			id := strings.ToLower(htmlutil.ID(n))
			if id == "" {
				return false
			}
			for _, f := range addressIDFragments {
				if strings.Contains(id, f) {
					return true
				}
			}
			return false
		})
		if cand != nil {
			out.Address = normalize.CleanText(cellText(cand))
		}
	}
	if !out.Address.Present() {
		hdr := htmlutil.Find(root, func(n *html.Node) bool {
			return htmlutil.IsElement(n, atom.Span, atom.B, atom.Strong, atom.H3) &&
				strings.Contains(strings.ToLower(cellText(n)), "property address")
		})
		if hdr != nil {
			next := htmlutil.FindNext(after(hdr), func(n *html.Node) bool {
				return n.Type == html.TextNode && normalize.Clean(n.Data) != ""
			})
			if next != nil {
				out.Address = normalize.CleanText(next.Data)
			}
		}
	}
	return out
}

// LegalDescription reads the numbered legal description lines and the deed
// transfer date.
func LegalDescription(root *html.Node) record.LegalDescription {
	out := record.LegalDescription{Lines: []string{}}
	for i := 1; i <= 7; i++ {
		if v, ok := textByID(root, "LegalDesc1_lblLegal"+strconv.Itoa(i)).Get(); ok {
			out.Lines = append(out.Lines, v)
		}
	}
	out.DeedTransferDate = textByID(root, idSaleDate)
	return out
}

// ARBHearing reads the appraisal review board hearing text.
func ARBHearing(root *html.Node) record.ARBHearing {
	return record.ARBHearing{HearingInfo: textByID(root, idHearingDate)}
}

var certifiedYear = regexp.MustCompile(`(20\d{2})`)

// TaxYear reads the year out of the "certified values" banner.
func TaxYear(root *html.Node) normalize.Number {
	text := htmlutil.Find(root, func(n *html.Node) bool {
		return n.Type == html.TextNode && strings.Contains(strings.ToLower(n.Data), "certified values")
	})
	if text == nil {
		return normalize.Number{}
	}
	m := certifiedYear.FindString(text.Data)
	if m == "" {
		return normalize.Number{}
	}
	return normalize.ParseNumber(m)
}
