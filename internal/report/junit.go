package report

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// WriteJUnit writes the summary in the JUnit XML dialect CI servers consume.
// Counts always agree with the JSON report because both read the same cases.
func (s *Summary) WriteJUnit(path string) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "widgetprobe")
	suites.CreateAttr("tests", fmt.Sprintf("%d", len(s.Cases)))
	suites.CreateAttr("failures", fmt.Sprintf("%d", s.Failed()))
	suites.CreateAttr("time", fmt.Sprintf("%.3f", s.FinishedAt.Sub(s.StartedAt).Seconds()))

	// One testsuite per browser project keeps CI dashboards readable when
	// the same case runs on several projects.
	byBrowser := map[string][]CaseResult{}
	var order []string
	for _, c := range s.Cases {
		if _, seen := byBrowser[c.Browser]; !seen {
			order = append(order, c.Browser)
		}
		byBrowser[c.Browser] = append(byBrowser[c.Browser], c)
	}

	for _, browser := range order {
		cases := byBrowser[browser]
		suite := suites.CreateElement("testsuite")
		suite.CreateAttr("name", browser)
		suite.CreateAttr("tests", fmt.Sprintf("%d", len(cases)))

		failures := 0
		skipped := 0
		for _, c := range cases {
			tc := suite.CreateElement("testcase")
			tc.CreateAttr("classname", c.Category)
			tc.CreateAttr("name", fmt.Sprintf("%s %s", c.ID, c.Title))
			tc.CreateAttr("time", fmt.Sprintf("%.3f", c.Duration.Seconds()))

			switch c.Status {
			case StatusFailed:
				failures++
				f := tc.CreateElement("failure")
				if c.Failure != nil {
					f.CreateAttr("type", string(c.Failure.Kind))
					f.CreateAttr("message", c.Failure.Message)
				}
				if len(c.Artifacts) > 0 {
					f.SetText("artifacts:\n" + strings.Join(c.Artifacts, "\n"))
				}
			case StatusSkipped:
				skipped++
				tc.CreateElement("skipped")
			}
		}
		suite.CreateAttr("failures", fmt.Sprintf("%d", failures))
		suite.CreateAttr("skipped", fmt.Sprintf("%d", skipped))
	}

	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("failed to write junit report %s: %w", path, err)
	}
	return nil
}
