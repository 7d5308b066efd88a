// Package export writes compliance results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetRequirements    = "Requirements"
	SheetGaps            = "Gaps"
	SheetCoverage        = "Coverage"
	SheetRecommendations = "Recommendations"
)

var requirementHeader = []string{
	"Jurisdiction", "Name", "Form", "Source", "Deadline", "Frequency",
	"Penalty", "Citation", "Confidence", "Extraction", "URL", "Description",
}

// WriteXLSX writes res as a workbook to w.
func WriteXLSX(w io.Writer, res *model.Result) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

// SaveXLSX writes res as a workbook to path.
func SaveXLSX(path string, res *model.Result) error {
	f, err := build(res)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func build(res *model.Result) (*xlsx.File, error) {
	if res == nil {
		return nil, eris.New("export: nil result")
	}
	f := xlsx.NewFile()

	reqs, err := addSheet(f, SheetRequirements, requirementHeader)
	if err != nil {
		return nil, err
	}
	for _, r := range res.Requirements {
		addStrings(reqs,
			string(r.SourceType), r.Name, r.FormNumber, r.Source, r.Deadline, r.Frequency,
			r.Penalty, r.Citation, string(r.ConfidenceLevel), r.Metadata.Extraction, r.SourceURL, r.Description,
		)
	}

	gaps, err := addSheet(f, SheetGaps, []string{"Severity", "Jurisdiction", "Requirement", "Penalty", "Conditions", "Description"})
	if err != nil {
		return nil, err
	}
	for _, g := range res.Gaps {
		addStrings(gaps,
			string(g.Severity), g.Category, g.Requirement, g.Penalty,
			strings.Join(g.ApplicableConditions, "; "), g.Description,
		)
	}

	cov, err := addSheet(f, SheetCoverage, []string{"Jurisdiction", "Found", "Expected", "Percentage"})
	if err != nil {
		return nil, err
	}
	for _, j := range model.AllJurisdictions() {
		c := res.Coverage.Jurisdictions[j]
		row := cov.AddRow()
		row.AddCell().SetString(string(j))
		row.AddCell().SetInt(c.Found)
		row.AddCell().SetInt(c.Expected)
		row.AddCell().SetFloatWithFormat(c.Percentage, "0.0")
	}
	addStrings(cov)
	addStrings(cov, "Overall score", fmt.Sprintf("%.1f", res.Coverage.OverallScore))
	addStrings(cov, "Risk level", string(res.Coverage.RiskLevel))
	addStrings(cov, "Requirements", fmt.Sprint(res.Statistics.Total))

	recs, err := addSheet(f, SheetRecommendations, []string{"Priority", "Action", "Reason", "Deadline"})
	if err != nil {
		return nil, err
	}
	for _, r := range res.Recommendations {
		addStrings(recs, string(r.Priority), r.Action, r.Reason, r.Deadline)
	}
	return f, nil
}

func addSheet(f *xlsx.File, name string, header []string) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "export: add sheet %s", name)
	}
	row := sheet.AddRow()
	for _, h := range header {
		cell := row.AddCell()
		cell.SetString(h)
		cell.GetStyle().Font.Bold = true
	}
	return sheet, nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
