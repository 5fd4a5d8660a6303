// Package sqlgen renders finalized entities as Postgres INSERT statements,
// either as literal SQL script files or as parameterized statements.
package sqlgen

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/community-ingest/internal/model"
)

// ColumnType is the SQL shape of a column value.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeNumber
	TypeBool
	TypeTextArray
)

// Column declares one target column.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
}

// Table declares a target table and how to read an entity's values for it.
type Table struct {
	Name    string
	Kind    model.Kind
	Columns []Column
	values  func(model.Entity) []any
}

// ColumnNames returns the declared column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var eventsTable = &Table{
	Name: "events",
	Kind: model.KindEvent,
	Columns: []Column{
		{"id", TypeText, true},
		{"title", TypeText, true},
		{"profile_id", TypeText, true},
		{"description", TypeText, false},
		{"date", TypeText, false},
		{"time", TypeText, false},
		{"location_name", TypeText, false},
		{"lat", TypeNumber, false},
		{"lng", TypeNumber, false},
		{"category", TypeText, true},
		{"price", TypeText, false},
		{"organizer_name", TypeText, false},
		{"contact_phone", TypeText, false},
		{"contact_whatsapp", TypeText, false},
		{"contact_instagram", TypeText, false},
		{"contact_email", TypeText, false},
		{"city_id", TypeText, true},
		{"approval_status", TypeText, true},
		{"image_url", TypeText, false},
	},
	values: func(ent model.Entity) []any {
		e := ent.(*model.Event)
		return []any{
			e.ID, e.Title, e.ProfileID, e.Description, e.Date, e.Time, e.LocationName,
			e.Lat, e.Lng, e.Category, e.Price, e.OrganizerName,
			e.ContactPhone, e.ContactWhatsApp, e.ContactInstagram, e.ContactEmail,
			e.CityID, e.ApprovalStatus, e.ImageURL,
		}
	},
}

var placesTable = &Table{
	Name: "places",
	Kind: model.KindPlace,
	Columns: []Column{
		{"id", TypeText, true},
		{"name", TypeText, true},
		{"type", TypeText, true},
		{"category", TypeText, true},
		{"description", TypeText, true},
		{"location_name", TypeText, true},
		{"hours", TypeText, false},
		{"price_range", TypeText, false},
		{"contact_whatsapp", TypeText, false},
		{"contact_phone", TypeText, false},
		{"contact_instagram", TypeText, false},
		{"contact_email", TypeText, false},
		{"website_url", TypeText, false},
		{"tags", TypeTextArray, true},
		{"images", TypeTextArray, true},
		{"city_id", TypeText, true},
		{"verified", TypeBool, true},
		{"lat", TypeNumber, false},
		{"lng", TypeNumber, false},
		{"created_by", TypeText, false},
	},
	values: func(ent model.Entity) []any {
		p := ent.(*model.Place)
		return []any{
			p.ID, p.Name, p.Type, p.Category, p.Description, p.LocationName, p.Hours, p.PriceRange,
			p.ContactWhatsApp, p.ContactPhone, p.ContactInstagram, p.ContactEmail, p.WebsiteURL,
			p.Tags, p.Images, p.CityID, p.Verified, p.Lat, p.Lng, p.CreatedBy,
		}
	},
}

var servicesTable = &Table{
	Name: "services",
	Kind: model.KindService,
	Columns: []Column{
		{"id", TypeText, true},
		{"title", TypeText, true},
		{"profile_id", TypeText, true},
		{"description", TypeText, false},
		{"category", TypeText, true},
		{"price_type", TypeText, false},
		{"price_amount", TypeNumber, false},
		{"price_currency", TypeText, false},
		{"price_notes", TypeText, false},
		{"location_name", TypeText, false},
		{"lat", TypeNumber, false},
		{"lng", TypeNumber, false},
		{"contact_phone", TypeText, false},
		{"contact_whatsapp", TypeText, false},
		{"contact_instagram", TypeText, false},
		{"contact_email", TypeText, false},
		{"city_id", TypeText, true},
		{"approval_status", TypeText, true},
		{"image_url", TypeText, false},
	},
	values: func(ent model.Entity) []any {
		s := ent.(*model.Service)
		return []any{
			s.ID, s.Title, s.ProfileID, s.Description, s.Category,
			s.PriceType, s.PriceAmount, s.PriceCurrency, s.PriceNotes,
			s.LocationName, s.Lat, s.Lng,
			s.ContactPhone, s.ContactWhatsApp, s.ContactInstagram, s.ContactEmail,
			s.CityID, s.ApprovalStatus, s.ImageURL,
		}
	},
}

// TableFor returns the declared table for an entity kind.
func TableFor(k model.Kind) (*Table, error) {
	switch k {
	case model.KindEvent:
		return eventsTable, nil
	case model.KindPlace:
		return placesTable, nil
	case model.KindService:
		return servicesTable, nil
	}
	return nil, eris.Errorf("sqlgen: no table for kind %q", k)
}
