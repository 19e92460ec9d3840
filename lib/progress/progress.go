// Package progress owns the pipeline's on-disk artifacts: the resolved
// company CSV, the per-platform review link JSON, the failure log, and the
// resume bookkeeping that lets every stage pick up where it stopped.
package progress

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Company is one row of the resolved-websites CSV.
type Company struct {
	Name       string
	Location   string
	WebsiteUrl string
}

const companyLocationDefault = "US"

var companyHeader = []string{"name", "location", "website_url"}

func ReadCompanies(path string) ([]Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := map[string]int{}
	for i, name := range rows[0] {
		columns[name] = i
	}
	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var companies []Company
	for _, row := range rows[1:] {
		company := Company{
			Name:       field(row, "name"),
			Location:   field(row, "location"),
			WebsiteUrl: field(row, "website_url"),
		}
		if company.Location == "" {
			company.Location = companyLocationDefault
		}
		companies = append(companies, company)
	}
	return companies, nil
}

func WriteCompanies(path string, companies []Company) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(companyHeader); err != nil {
		return err
	}
	for _, company := range companies {
		err := w.Write([]string{company.Name, company.Location, company.WebsiteUrl})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReviewLinks records where each platform's review page for a company was
// found, if anywhere. Empty urls mean the search came up dry.
type ReviewLinks struct {
	CompanyName    string `json:"company_name"`
	Location       string `json:"location"`
	SearchIndex    string `json:"search_index"`
	GlassdoorUrl   string `json:"glassdoor_url"`
	IndeedUrl      string `json:"indeed_url"`
	ComparablyUrl  string `json:"comparably_url"`
	KununuUrl      string `json:"kununu_url"`
	AmbitionboxUrl string `json:"ambitionbox_url"`
	Method         string `json:"method"`
}

func (l *ReviewLinks) Url(platform string) string {
	switch platform {
	case "glassdoor":
		return l.GlassdoorUrl
	case "indeed":
		return l.IndeedUrl
	case "comparably":
		return l.ComparablyUrl
	case "kununu":
		return l.KununuUrl
	case "ambitionbox":
		return l.AmbitionboxUrl
	}
	return ""
}

func (l *ReviewLinks) SetUrl(platform, url string) {
	switch platform {
	case "glassdoor":
		l.GlassdoorUrl = url
	case "indeed":
		l.IndeedUrl = url
	case "comparably":
		l.ComparablyUrl = url
	case "kununu":
		l.KununuUrl = url
	case "ambitionbox":
		l.AmbitionboxUrl = url
	}
}

// HasAny reports whether any of the given platforms resolved to a url.
func (l *ReviewLinks) HasAny(platforms []string) bool {
	for _, platform := range platforms {
		if l.Url(platform) != "" {
			return true
		}
	}
	return false
}

// ReadJSON loads a JSON artifact. A missing file is not an error, the zero
// value comes back so a first run starts clean.
func ReadJSON[T any](path string) (T, error) {
	var value T
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return value, nil
	}
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(contents, &value); err != nil {
		return value, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return value, nil
}

func WriteJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	contents, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}

// Key identifies one company/platform pair in resume state.
func Key(companyName, platform string) string {
	return companyName + "_" + platform
}

const failureTimeLayout = "2006-01-02 15:04:05"

type Failure struct {
	CompanyName string
	Platform    string
	Url         string
	Error       string
	Timestamp   string
}

var failureHeader = []string{"company_name", "platform", "url", "error", "timestamp"}

// AppendFailure adds one row to the failure log, creating the file with a
// header row on first use.
func AppendFailure(path string, failure Failure) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if failure.Timestamp == "" {
		failure.Timestamp = time.Now().UTC().Format(failureTimeLayout)
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(failureHeader); err != nil {
			return err
		}
	}
	err = w.Write([]string{
		failure.CompanyName,
		failure.Platform,
		failure.Url,
		failure.Error,
		failure.Timestamp,
	})
	if err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ReadFailures(path string) ([]Failure, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var failures []Failure
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		failures = append(failures, Failure{
			CompanyName: row[0],
			Platform:    row[1],
			Url:         row[2],
			Error:       row[3],
			Timestamp:   row[4],
		})
	}
	return failures, nil
}
