package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/omelentjeff/product-management-app/internal/model"
)

const maxCell = 40

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// fail prints err for the terminal. Validation errors get one
// "field: message" line per field.
func fail(w io.Writer, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintln(w, ve.Error())
		printFieldErrors(w, ve.Fields.Flatten())
		return
	}
	fmt.Fprintln(w, err)
}

func printFieldErrors(w io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "" {
			fmt.Fprintln(w, fields[k])
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", k, fields[k])
	}
}

func formatNumber(f *float64) string {
	if f == nil {
		return "-"
	}
	return humanize.Ftoa(*f)
}

// printTable renders rows as aligned columns. Widths are measured in
// terminal cells so wide characters line up.
func printTable(w io.Writer, rows []model.Product) {
	header := []string{"ID", "NAME", "MANUFACTURER", "WEIGHT", "GTIN"}
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, p := range rows {
		cells = append(cells, []string{
			strconv.FormatInt(p.ID, 10),
			runewidth.Truncate(p.Name, maxCell, "…"),
			runewidth.Truncate(p.Manufacturer, maxCell, "…"),
			formatNumber(p.Weight),
			p.GTIN,
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	for _, row := range cells {
		var b strings.Builder
		for i, c := range row {
			if i == len(row)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func printPageFooter(w io.Writer, page, totalPages int, total int64) {
	fmt.Fprintf(w, "page %d of %d, %s products\n", page, max(totalPages, 1), humanize.Comma(total))
}

func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}
