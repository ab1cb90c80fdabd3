package contactsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/unclebandit/coldmail-backend/internal/model"
)

// headerAliases maps every accepted column header to the contact field it fills
var headerAliases = map[string]string{
	"First Name": "first_name", "FirstName": "first_name", "first_name": "first_name", "firstName": "first_name",
	"Last Name": "last_name", "LastName": "last_name", "last_name": "last_name", "lastName": "last_name",
	"Email": "email", "email": "email", "Email Address": "email", "email_address": "email",
	"Company": "company", "company": "company", "Organization": "company", "organization": "company",
	"Position": "position", "position": "position", "Title": "position", "title": "position",
	"Job Title": "position", "job_title": "position",
	"Phone": "phone", "phone": "phone", "Phone Number": "phone", "phone_number": "phone",
	"Notes": "notes", "notes": "notes",
	"Tags": "tags", "tags": "tags",
}

// CSVSource reads contacts from a sheet export whose first line is a header
// row. Unknown columns are ignored.
type CSVSource struct {
	r io.Reader
}

// NewCSVSource returns a Source reading CSV from r
func NewCSVSource(r io.Reader) *CSVSource {
	return &CSVSource{r: r}
}

func (s *CSVSource) Rows(ctx context.Context) ([]model.ContactInput, error) {
	reader := csv.NewReader(s.r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.ContactInput{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = headerAliases[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))]
	}

	rows := []model.ContactInput{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, toContactInput(fields, record))
	}
	return rows, nil
}

func toContactInput(fields, record []string) model.ContactInput {
	var in model.ContactInput
	for i, value := range record {
		if i >= len(fields) {
			break
		}
		value = strings.TrimSpace(value)
		switch fields[i] {
		case "first_name":
			in.FirstName = value
		case "last_name":
			in.LastName = value
		case "email":
			in.Email = value
		case "company":
			in.Company = value
		case "position":
			in.Position = value
		case "phone":
			in.Phone = value
		case "notes":
			in.Notes = value
		case "tags":
			in.Tags = splitTags(value)
		}
	}
	return in
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
