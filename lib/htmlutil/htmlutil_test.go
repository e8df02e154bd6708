package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parse(t testing.TB, doc string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return root
}

func TestLines(t *testing.T) {
	root := parse(t, `<div id="x">JOHN DOE<br>123 MAIN   ST<br/> <br>DALLAS, TX 75201</div>`)
	div := FindByID(root, "x")
	require.NotNil(t, div)
	require.Equal(t, []string{"JOHN DOE", "123 MAIN ST", "DALLAS, TX 75201"}, Lines(div))
	require.Equal(t, "JOHN DOE|123 MAIN   ST| |DALLAS, TX 75201", GetTextSeparated(div, "|"))
}

func TestRowsSkipNestedTables(t *testing.T) {
	root := parse(t, `<table id="outer">
		<tr><th>2024</th><td>OWNER</td><td><table><tr><td>Deed Transfer Date:</td><td>1/2/2020</td></tr></table></td></tr>
		<tr><th>2023</th><td>OWNER</td><td>LOT 1</td></tr>
	</table>`)
	outer := FindByID(root, "outer")
	rows := Rows(outer)
	require.Len(t, rows, 2)
	require.Len(t, Cells(rows[0]), 3)
	require.Len(t, StreamCells(outer), 6)
}

func TestOrphanCellsAreGroupedIntoOneRow(t *testing.T) {
	root := parse(t, `<table id="t"><th>2024</th><td>A</td><td>B</td><th>2023</th><td>C</td><td>D</td></table>`)
	table := FindByID(root, "t")
	rows := Rows(table)
	require.Len(t, rows, 1)
	require.Len(t, StreamCells(table), 6)
}

func TestFindNext(t *testing.T) {
	root := parse(t, `<span id="hdr">Land</span><div><p>text</p><table id="land"><tr><td>1</td></tr></table></div>`)
	hdr := FindByID(root, "hdr")
	table := FindNext(hdr, func(n *html.Node) bool { return IsElement(n, atom.Table) })
	require.NotNil(t, table)
	require.Equal(t, "land", ID(table))
	require.True(t, HasCells(table))
	require.Nil(t, FindNext(table, func(n *html.Node) bool { return IsElement(n, atom.Table) }))
}

func TestHasClass(t *testing.T) {
	root := parse(t, `<span id="s" class="DtlSectionHdr  big">x</span>`)
	span := FindByID(root, "s")
	require.True(t, HasClass(span, "DtlSectionHdr"))
	require.False(t, HasClass(span, "Dtl"))
}
