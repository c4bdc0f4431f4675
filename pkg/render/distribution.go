package render

import (
	"strings"

	"github.com/ausgeophys/metasync/pkg/diag"
)

// Distribution is the online-resource block describing how a dataset's
// persistent identifier resolves.
type Distribution struct {
	DOI         string
	Format      string
	URL         string
	Protocol    string
	Name        string
	Description string
	Distributor Distributor
}

// Distributor holds the contact details of the distributing organisation,
// drawn from the record's ORGANISATION_* template fields.
type Distributor struct {
	Name      string
	Telephone string
	Address   string
	City      string
	State     string
	Postcode  string
	Country   string
	Email     string
}

// distributorFields maps each distributor contact field to the projected
// record field that supplies it. Every one must be present for a block to
// be emitted.
var distributorFields = []struct {
	field string
	set   func(*Distributor, string)
}{
	{"ORGANISATION_NAME", func(d *Distributor, v string) { d.Name = v }},
	{"ORGANISATION_PHONE", func(d *Distributor, v string) { d.Telephone = v }},
	{"ORGANISATION_ADDRESS", func(d *Distributor, v string) { d.Address = v }},
	{"ORGANISATION_CITY", func(d *Distributor, v string) { d.City = v }},
	{"ORGANISATION_STATE", func(d *Distributor, v string) { d.State = v }},
	{"ORGANISATION_POSTCODE", func(d *Distributor, v string) { d.Postcode = v }},
	{"ORGANISATION_COUNTRY", func(d *Distributor, v string) { d.Country = v }},
	{"ORGANISATION_EMAIL", func(d *Distributor, v string) { d.Email = v }},
}

// AddDistribution attaches a DOI_DISTRIBUTION block when the record carries
// a DOI and the full distributor contact details. A record without a DOI
// simply gets no block; a DOI with incomplete contact fields records a
// warning and is left out of the distribution section rather than emitted
// half-described.
func AddDistribution(fields map[string]any, sink *diag.Sink) {
	doi, _ := fields["DOI"].(string)
	if strings.TrimSpace(doi) == "" {
		return
	}

	var dist Distributor
	var missing []string
	for _, df := range distributorFields {
		s, _ := fields[df.field].(string)
		if strings.TrimSpace(s) == "" {
			missing = append(missing, df.field)
			continue
		}
		df.set(&dist, s)
	}
	if len(missing) > 0 {
		if sink != nil {
			sink.Absent("DOI_DISTRIBUTION", "skipping distribution block, missing "+strings.Join(missing, ", "))
		}
		return
	}

	identifier, _ := fields["UUID"].(string)
	fields["DOI_DISTRIBUTION"] = Distribution{
		DOI:         doi,
		Format:      "html",
		URL:         doi,
		Protocol:    "WWW:LINK-1.0-http--link",
		Name:        "Digital Object Identifier for dataset " + identifier,
		Description: "Dataset DOI",
		Distributor: dist,
	}
}
